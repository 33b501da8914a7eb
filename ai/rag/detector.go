package rag

import (
	"log/slog"

	"github.com/parksage/parksage/parks"
)

// DefaultDetectionWindow is how many trailing history turns the detector
// scans. Tunable, not an invariant.
const DefaultDetectionWindow = 6

// Detector resolves which park a conversation is currently about using only
// text evidence. It is a pure function over its inputs plus the static
// directory.
type Detector struct {
	directory *parks.Directory
	window    int
}

// NewDetector creates a detector over the given directory. A non-positive
// window falls back to DefaultDetectionWindow.
func NewDetector(directory *parks.Directory, window int) *Detector {
	if window <= 0 {
		window = DefaultDetectionWindow
	}
	return &Detector{directory: directory, window: window}
}

// Detect returns the active park code, or "" when no park is mentioned.
//
// Priority order, first match wins:
//  1. the current question
//  2. recent user turns, most recent first
//  3. the single most recent assistant turn, only when it names exactly one
//     distinct park (multi-park answers are ambiguous and yield no match)
func (d *Detector) Detect(question string, history []Turn) string {
	if code := d.directory.FindInText(question); code != "" {
		slog.Info("park detected in current question", "park_code", code)
		return code
	}

	recent := lastTurns(history, d.window)

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != RoleUser {
			continue
		}
		if code := d.directory.FindInText(recent[i].Content); code != "" {
			slog.Info("park detected from user history", "park_code", code)
			return code
		}
	}

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != RoleAssistant {
			continue
		}
		codes := d.directory.CodesInText(recent[i].Content)
		if len(codes) == 1 {
			slog.Info("park detected from last assistant turn", "park_code", codes[0])
			return codes[0]
		}
		break
	}

	return ""
}

// lastTurns returns the trailing n turns of history without copying.
func lastTurns(history []Turn, n int) []Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
