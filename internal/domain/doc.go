// Package domain contains the core value types of the image generation
// service: the generation request submitted by a caller and the fixed set of
// aspect ratios the remote task API accepts. It is independent of any
// transport, storage, or upstream provider.
package domain
