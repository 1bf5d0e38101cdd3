// Package dispatch runs the request loop of the native messaging host: one
// framed request in, one framed response out, strictly in order.
package dispatch
