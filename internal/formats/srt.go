package formats

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func init() {
	DefaultRegistry.Register(".srt", 0, NewSRTHandler)
}

// SRTHandler parses and composes the SubRip format. Hard breaks are
// literal newlines; SRT has no soft-break sigil. Per spec.md §6, the only
// file-level metadata it carries is a proprietary tail line, if present.
type SRTHandler struct{}

func NewSRTHandler(string) Handler { return &SRTHandler{} }

func (*SRTHandler) Extension() string { return ".srt" }

var srtTimestampRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})(.*)`)

func (h *SRTHandler) ParseFile(path string) (SubtitleData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SubtitleData{}, fmt.Errorf("failed to open SRT file: %w", err)
	}
	return h.ParseString(string(raw))
}

func (h *SRTHandler) ParseString(data string) (SubtitleData, error) {
	var lines []LineData
	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var (
		number    int
		start, end time.Duration
		haveTimes bool
		tail      string
		textLines []string
		lineNum   int
	)

	flush := func() {
		if number != 0 && len(textLines) > 0 {
			lines = append(lines, LineData{
				Number:   number,
				Start:    start,
				End:      end,
				Text:     normalizeHardBreaks(strings.Join(textLines, "\n")),
				Metadata: tailMetadata(tail),
			})
		}
		number = 0
		haveTimes = false
		tail = ""
		textLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\xef\xbb\xbf")
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if number == 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				number = n
				continue
			}
		}

		if number != 0 && !haveTimes {
			if m := srtTimestampRe.FindStringSubmatch(line); len(m) == 10 {
				var err error
				start, err = parseSRTTimestamp(m[1], m[2], m[3], m[4])
				if err != nil {
					return SubtitleData{}, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
				}
				end, err = parseSRTTimestamp(m[5], m[6], m[7], m[8])
				if err != nil {
					return SubtitleData{}, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
				}
				if end < start {
					return SubtitleData{}, fmt.Errorf("end time before start time at line %d", lineNum)
				}
				tail = strings.TrimSpace(m[9])
				haveTimes = true
				continue
			}
		}

		if number != 0 {
			textLines = append(textLines, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return SubtitleData{}, fmt.Errorf("error reading SRT data: %w", err)
	}

	return SubtitleData{Lines: lines, DetectedFormat: ".srt"}, nil
}

func (h *SRTHandler) Compose(data SubtitleData) (string, error) {
	var sb strings.Builder
	for i, line := range data.Lines {
		number := line.Number
		if number == 0 {
			number = i + 1
		}
		fmt.Fprintf(&sb, "%d\n", number)
		fmt.Fprintf(&sb, "%s --> %s", formatSRTTime(line.Start), formatSRTTime(line.End))
		if tail := line.Metadata["tail"]; tail != "" {
			sb.WriteString(" ")
			sb.WriteString(tail)
		}
		sb.WriteString("\n")
		sb.WriteString(denormalizeHardBreaks(line.Text))
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func tailMetadata(tail string) map[string]string {
	if tail == "" {
		return nil
	}
	return map[string]string{"tail": tail}
}

func parseSRTTimestamp(hh, mm, ss, ms string) (time.Duration, error) {
	return parseHMSms(hh, mm, ss, ms)
}

func formatSRTTime(d time.Duration) string {
	h, m, s, ms := splitDuration(d)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// normalizeHardBreaks/denormalizeHardBreaks are identity for SRT: its hard
// break already is \n, per spec.md §6's format table. Kept as named
// functions (rather than inlined); the VTT handler reuses them, while
// ASS has its own conversions (assHardToNewline/assNewlineToHard in ass.go).
func normalizeHardBreaks(text string) string   { return text }
func denormalizeHardBreaks(text string) string { return text }

func splitDuration(d time.Duration) (h, m, s, ms int) {
	h = int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m = int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s = int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms = int(d / time.Millisecond)
	return
}

func parseHMSms(hh, mm, ss, ms string) (time.Duration, error) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(ss)
	if err != nil {
		return 0, err
	}
	msec, err := strconv.Atoi(ms)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(msec)*time.Millisecond, nil
}
