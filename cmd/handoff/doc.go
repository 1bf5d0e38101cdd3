// Command handoff is the native messaging host for the download manager
// extension. Browsers launch it directly; the subcommands exist for
// installation and troubleshooting.
package main
