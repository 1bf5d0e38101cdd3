// Package manifest builds and installs the native messaging host manifest
// that tells a browser how to launch handoff.
//
// Firefox identifies callers by add-on ID (allowed_extensions) while
// Chromium-based browsers use extension origins (allowed_origins), so each
// browser gets its own file in its own per-user directory.
package manifest
