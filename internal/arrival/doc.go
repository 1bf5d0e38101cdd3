// Package arrival waits for a download to finish landing in the watched
// directory and moves it to the destination requested by the browser.
//
// Completion is inferred by polling: a file whose size is non-zero and
// unchanged between two consecutive polls is considered fully written.
// Polling is driven by an injectable Clock and Stat so the whole state
// machine can be exercised without real delays.
package arrival
