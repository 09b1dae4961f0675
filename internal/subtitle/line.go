// Package subtitle holds the in-memory project tree: lines, batches, scenes
// and the root Subtitles container, plus the scoped editor that is the sole
// mutation path into it.
package subtitle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Line is one displayed cue, the leaf of the project tree.
type Line struct {
	Number      int               `json:"number"`
	Start       time.Duration     `json:"start"`
	End         time.Duration     `json:"end"`
	Text        string            `json:"text"`
	Translation string            `json:"translation,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// lineJSON mirrors Line but with Start/End as canonical "HH:MM:SS,mmm"
// strings, per spec.md §6's project file shape: timestamps are strings in
// the format handler's canonical form regardless of the subtitle's own
// on-disk format, recomputed from the duration on decode.
type lineJSON struct {
	Number      int               `json:"number"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Text        string            `json:"text"`
	Translation string            `json:"translation,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineJSON{
		Number:      l.Number,
		Start:       FormatTimestamp(l.Start),
		End:         FormatTimestamp(l.End),
		Text:        l.Text,
		Translation: l.Translation,
		Metadata:    l.Metadata,
	})
}

func (l *Line) UnmarshalJSON(data []byte) error {
	var aux lineJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	start, err := ParseTimestamp(aux.Start)
	if err != nil {
		return fmt.Errorf("line %d: invalid start timestamp %q: %w", aux.Number, aux.Start, err)
	}
	end, err := ParseTimestamp(aux.End)
	if err != nil {
		return fmt.Errorf("line %d: invalid end timestamp %q: %w", aux.Number, aux.End, err)
	}
	l.Number = aux.Number
	l.Start = start
	l.End = end
	l.Text = aux.Text
	l.Translation = aux.Translation
	l.Metadata = aux.Metadata
	return nil
}

// FormatTimestamp renders d as "HH:MM:SS,mmm", the project file's one
// canonical timestamp form, independent of the subtitle's own on-disk
// format (which may use a different separator or precision).
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp parses the canonical "HH:MM:SS,mmm" form back into a
// duration, recomputing it exactly rather than trusting a stored value.
func ParseTimestamp(s string) (time.Duration, error) {
	main, msPart, ok := strings.Cut(s, ",")
	if !ok {
		return 0, fmt.Errorf("missing millisecond separator")
	}
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(msPart)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second + time.Duration(ms)*time.Millisecond, nil
}

// Translated reports whether the line has a non-empty translation.
func (l *Line) Translated() bool {
	return l != nil && l.Translation != ""
}

// Clone returns a deep copy so callers can hand out lines without exposing
// the owning batch's backing slice.
func (l *Line) Clone() *Line {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Metadata != nil {
		clone.Metadata = make(map[string]string, len(l.Metadata))
		for k, v := range l.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
