// Package memory provides in-memory scheduler and manifest stores. They back
// tests, and the scheduler store is the fallback of the serve command when
// the on-disk state cannot be opened; task history is then lost on restart.
package memory
