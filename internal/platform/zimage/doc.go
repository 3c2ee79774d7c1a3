// Package zimage provides an implementation of the generation.Gateway
// interface backed by the zimageturbo remote task API.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's task lifecycle controller to the external
// image generation service without exposing wire formats to the core.
//
// Key components:
//
// 1. Client.Submit (task submission gateway):
//   - Validates the request before any network activity
//   - POSTs {prompt, aspect_ratio} with the configured bearer credential
//   - Maps 401/402/429 and malformed bodies onto the generation error taxonomy
//
// 2. Client.Status (task status gateway):
//   - Queries the status endpoint for one task handle
//   - Classifies IN_PROGRESS / SUCCESS / FAILED into a generation.TaskState
//
// 3. ResultPayload:
//   - The success payload arrives either as a JSON array of image URLs or as
//     a string containing a JSON-encoded array; it is decoded exactly once,
//     into a tagged union, when the response body is parsed.
package zimage
