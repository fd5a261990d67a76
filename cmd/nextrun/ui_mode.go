package main

import (
	"fmt"
	"os"
	"strings"

	"nextrun/internal/runerr"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", &runerr.ArgumentError{Message: fmt.Sprintf("invalid --ui value %q (expected auto|on|off)", value)}
	}
}

// shouldUseTUI resolves mode. Auto enables the progress UI only when stdout
// is a terminal and output is not quieted.
func shouldUseTUI(mode uiMode, quiet bool) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return !quiet && isTerminal(os.Stdout)
	}
}
