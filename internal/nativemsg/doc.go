// Package nativemsg implements the browser native messaging wire format.
//
// Each message is a 4-byte unsigned length in native byte order followed by
// that many bytes of UTF-8 JSON. The same framing is used in both directions.
// The package knows nothing about what the messages mean: it delimits,
// validates and flushes frames, and reports malformed input as *ProtocolError
// so the caller can answer with an error and keep reading.
package nativemsg
