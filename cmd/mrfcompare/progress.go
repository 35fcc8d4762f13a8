package main

import "github.com/danishbarkat/mrfcompare/internal/progress"

// resolveManager picks the progress.Manager implementation matching the
// operator's environment: an interactive multi-bar display by default, a
// throttled line logger for non-TTY environments, or nothing at all.
func resolveManager(noProgress, logProgress bool) progress.Manager {
	switch {
	case logProgress:
		return progress.NewLogManager()
	case noProgress:
		return &progress.NoopManager{}
	default:
		return progress.NewMPBManager()
	}
}
