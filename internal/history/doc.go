// Package history keeps a SQLite journal of handled requests so users can
// see where downloads were moved and why a handoff failed.
//
// The journal is an audit log only. The host never reads it back while
// serving requests, and a failed write never changes the response sent to
// the browser.
package history
