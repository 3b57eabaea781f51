// Package ws serves the console push endpoint.
//
// The package implements:
//   - Hub: the set of connected console clients and the backlog of recent lines
//   - Handler: upgrades requests and runs the per-client read and write pumps
//   - ConsoleHook: a logrus hook that publishes server log entries to the hub
//
// Frames are plain text. Console clients only receive; anything they send
// other than control frames is discarded.
package ws
