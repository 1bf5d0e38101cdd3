package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusError
)

func statusLabel(kind statusKind, colorize bool) string {
	var label, color string
	switch kind {
	case statusOK:
		label, color = "OK", ansiGreen
	default:
		label, color = "ERROR", ansiRed
	}
	if !colorize {
		return label
	}
	return color + label + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
