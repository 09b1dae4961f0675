package formats

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

func init() {
	DefaultRegistry.Register(".vtt", 0, NewVTTHandler)
}

// VTTHandler parses and composes WebVTT. The teacher's vtt_parser.go
// discards cue identifiers, cue settings, and NOTE/STYLE blocks; spec.md
// §4.1 requires round-tripping file-level metadata, so this handler keeps
// them: NOTE/STYLE blocks collect into SubtitleData.Metadata under a
// "preamble" key emitted verbatim ahead of the first cue, and each cue's
// id/settings ride in LineData.Metadata.
type VTTHandler struct{}

func NewVTTHandler(string) Handler { return &VTTHandler{} }

func (*VTTHandler) Extension() string { return ".vtt" }

var (
	vttTimestampRe      = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})\.(\d{3})(.*)`)
	vttShortTimestampRe = regexp.MustCompile(`(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2}):(\d{2})\.(\d{3})(.*)`)
)

func (h *VTTHandler) ParseFile(path string) (SubtitleData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SubtitleData{}, fmt.Errorf("failed to open VTT file: %w", err)
	}
	return h.ParseString(string(raw))
}

func (h *VTTHandler) ParseString(data string) (SubtitleData, error) {
	var lines []LineData
	var preamble []string

	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var (
		cueID      string
		start, end time.Duration
		settings   string
		textLines  []string
		inCue      bool
		lineNum    int
		headerSeen bool
		number     int
	)

	flush := func() {
		if inCue && len(textLines) > 0 {
			number++
			meta := map[string]string{}
			if cueID != "" {
				meta["id"] = cueID
			}
			if settings != "" {
				meta["settings"] = settings
			}
			if len(meta) == 0 {
				meta = nil
			}
			lines = append(lines, LineData{
				Number:   number,
				Start:    start,
				End:      end,
				Text:     normalizeHardBreaks(strings.Join(textLines, "\n")),
				Metadata: meta,
			})
		}
		cueID = ""
		settings = ""
		inCue = false
		textLines = nil
	}

	var pendingID string

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\xef\xbb\xbf")
		}

		trimmed := strings.TrimSpace(line)

		if !headerSeen {
			if strings.HasPrefix(trimmed, "WEBVTT") {
				headerSeen = true
				continue
			}
		}

		if strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE") {
			preamble = append(preamble, line)
			for scanner.Scan() {
				next := scanner.Text()
				if strings.TrimSpace(next) == "" {
					break
				}
				preamble = append(preamble, next)
			}
			preamble = append(preamble, "")
			continue
		}

		if trimmed == "" {
			flush()
			pendingID = ""
			continue
		}

		if m := vttTimestampRe.FindStringSubmatch(line); len(m) == 10 {
			flush()
			var err error
			start, err = parseVTTTimestamp(m[1], m[2], m[3], m[4])
			if err != nil {
				return SubtitleData{}, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err = parseVTTTimestamp(m[5], m[6], m[7], m[8])
			if err != nil {
				return SubtitleData{}, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			settings = strings.TrimSpace(m[9])
			cueID = pendingID
			pendingID = ""
			inCue = true
			continue
		}

		if m := vttShortTimestampRe.FindStringSubmatch(line); len(m) == 8 {
			flush()
			var err error
			start, err = parseVTTTimestamp("00", m[1], m[2], m[3])
			if err != nil {
				return SubtitleData{}, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err = parseVTTTimestamp("00", m[4], m[5], m[6])
			if err != nil {
				return SubtitleData{}, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			settings = strings.TrimSpace(m[7])
			cueID = pendingID
			pendingID = ""
			inCue = true
			continue
		}

		if !inCue {
			pendingID = trimmed
			continue
		}

		textLines = append(textLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return SubtitleData{}, fmt.Errorf("error reading VTT data: %w", err)
	}

	meta := map[string]any{}
	if len(preamble) > 0 {
		meta["preamble"] = strings.Join(preamble, "\n")
	}
	if len(meta) == 0 {
		meta = nil
	}

	return SubtitleData{Lines: lines, Metadata: meta, DetectedFormat: ".vtt"}, nil
}

func (h *VTTHandler) Compose(data SubtitleData) (string, error) {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	if preamble, ok := data.Metadata["preamble"].(string); ok && preamble != "" {
		sb.WriteString(preamble)
		if !strings.HasSuffix(preamble, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	for i, line := range data.Lines {
		if id := line.Metadata["id"]; id != "" {
			sb.WriteString(id)
			sb.WriteString("\n")
		} else {
			fmt.Fprintf(&sb, "%d\n", numberOr(line.Number, i+1))
		}

		fmt.Fprintf(&sb, "%s --> %s", formatVTTTime(line.Start), formatVTTTime(line.End))
		if settings := line.Metadata["settings"]; settings != "" {
			sb.WriteString(" ")
			sb.WriteString(settings)
		}
		sb.WriteString("\n")
		sb.WriteString(denormalizeHardBreaks(line.Text))
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

func numberOr(n, fallback int) int {
	if n == 0 {
		return fallback
	}
	return n
}

func parseVTTTimestamp(hh, mm, ss, ms string) (time.Duration, error) {
	return parseHMSms(hh, mm, ss, ms)
}

func formatVTTTime(d time.Duration) string {
	h, m, s, ms := splitDuration(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
