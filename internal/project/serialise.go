package project

import (
	"bytes"
	"encoding/json"

	"github.com/mgpai22/subtrans/internal/subtitle"
)

// Encode renders subs as pretty-printed JSON with Unicode left literal,
// the Go equivalent of Python's `json.dumps(..., ensure_ascii=False,
// indent=4)`. HTML-escaping is disabled so the `<wbr>` soft-break
// sentinel and a literal "&" in subtitle text survive untouched, per
// spec.md §6's project file shape.
func Encode(subs *subtitle.Subtitles) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(subs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a `.subtrans` project file's JSON into a fresh Subtitles
// tree and runs Sanitise to absorb any drift accumulated before the file
// was written (missing numbers, reordered scenes), per spec.md §4.7.
// Line timestamps are recomputed from their canonical string form rather
// than trusted as stored (subtitle.Line's UnmarshalJSON does the
// recomputation).
func Decode(data []byte) (*subtitle.Subtitles, error) {
	var subs subtitle.Subtitles
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, err
	}
	subtitle.Sanitise(&subs)
	return &subs, nil
}
