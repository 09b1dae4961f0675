// Package formats implements the subtitle format registry: a process-wide
// extension-to-handler lookup, plus the SRT, WebVTT, SSA/ASS and void
// handlers that translate between on-disk subtitle files and the uniform
// SubtitleData line sequence the rest of the pipeline consumes.
package formats

import "time"

// LineData is one cue as produced by a parser or consumed by a composer,
// before it becomes a subtitle.Line. Metadata carries format-specific keys
// (style, layer, speaker, cue id, override tags).
type LineData struct {
	Number   int
	Start    time.Duration
	End      time.Duration
	Text     string
	Metadata map[string]string
}

// SubtitleData is the uniform value every format handler produces on parse
// and consumes on compose, per spec.md §4.1.
type SubtitleData struct {
	Lines            []LineData
	Metadata         map[string]any
	StartLineNumber  int
	DetectedFormat   string
}

// Handler is the interface every format (including the void placeholder)
// implements.
type Handler interface {
	// Extension returns the canonical lower-cased extension this handler
	// instance was created for (".srt", ".vtt", ".ass"...).
	Extension() string
	ParseFile(path string) (SubtitleData, error)
	ParseString(data string) (SubtitleData, error)
	Compose(data SubtitleData) (string, error)
}
