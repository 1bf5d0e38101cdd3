// Package hostrun wires configuration, logging, the move journal, the
// arrival watcher and the request dispatcher into one host process.
//
// A browser starts a fresh process for every native messaging connection,
// so several hosts may run at once. Each gets its own session ID and log
// file; they share the history database and destination lock directory.
package hostrun
