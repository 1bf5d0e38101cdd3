// Package logs reads the per-run host log files written under paths.log_dir.
//
// The browser owns the host's stdout and discards its stderr, so the run log
// is the only place a user can see what a host session did. Current resolves
// the log of the most recent session, Last returns its final lines, and
// Follow streams lines appended after a known offset.
package logs
