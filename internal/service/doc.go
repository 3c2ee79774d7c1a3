// Package service contains the application-level use cases that sit between
// the delivery mechanisms (HTTP, CLI) and persistence.
//
// HistoryService listens to task controller state changes, stores each
// settled run through a store.GenerationStore, and serves the history list.
// It depends only on the store interfaces, never on a concrete database.
package service
