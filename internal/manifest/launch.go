package manifest

import "strings"

// Launch describes how the browser started the host process.
type Launch struct {
	Browser Browser
	// Caller is the extension ID (Firefox) or origin (Chromium).
	Caller       string
	ManifestPath string
	ParentWindow string
}

// DetectLaunch inspects the host's command-line arguments. Firefox passes
// the manifest path and the add-on ID; Chromium passes the caller origin and,
// on Windows, --parent-window. ok is false for a manual invocation.
func DetectLaunch(args []string) (Launch, bool) {
	var (
		launch     Launch
		positional []string
	)
	for _, arg := range args {
		if value, found := strings.CutPrefix(arg, "--parent-window="); found {
			launch.ParentWindow = value
			continue
		}
		positional = append(positional, arg)
	}

	for _, arg := range positional {
		if strings.HasPrefix(arg, "chrome-extension://") {
			launch.Browser = Chrome
			launch.Caller = arg
			return launch, true
		}
	}
	if len(positional) == 2 && strings.HasSuffix(positional[0], ".json") {
		launch.Browser = Firefox
		launch.ManifestPath = positional[0]
		launch.Caller = positional[1]
		return launch, true
	}
	return Launch{}, false
}
