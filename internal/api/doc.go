// Package api handles incoming HTTP requests, request validation, and
// response formatting. It relays generation requests to the remote task API,
// runs server-side generation sessions on task controllers, and lists
// recorded generations. Routes are mounted by cmd/server.
package api
