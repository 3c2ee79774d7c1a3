// Package generation defines the boundary between the application core and
// the remote asynchronous image generation API. It holds the ports the task
// lifecycle controller drives (Submitter and StatusChecker), the normalized
// TaskState they return, and the error taxonomy every adapter maps its
// failures into.
package generation
