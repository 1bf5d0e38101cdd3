// Package preflight provides readiness checks for the filesystem paths and
// browser registration handoff depends on.
//
// The host runs RunAll at startup and logs failures as warnings; it keeps
// serving because the browser cannot show anything the host prints. The
// "handoff check" command renders the same results as a table.
package preflight
