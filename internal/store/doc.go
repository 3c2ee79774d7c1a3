// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// The only persisted entity is the GenerationRecord: one row per settled
// generation run, written by the history recorder.
package store
