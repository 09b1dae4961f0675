// Package preprocess applies the substitutions map and wraps over-long
// lines before a batch is handed to the translator, per spec.md §4
// (Prep stage of the pipeline diagram). It does not otherwise normalise
// whitespace.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/mgpai22/subtrans/internal/subtitle"
)

// DefaultMaxLineLength is the display-width budget used to decide when a
// line needs a soft-break wrap hint inserted, absent any other signal
// from the source file (the settings allow-list in spec.md §4.2 has no
// per-project override for this).
const DefaultMaxLineLength = 44

const wbrSentinel = "<wbr>"

// ModeWholeWords only replaces substitution keys at word boundaries.
// ModePartialWords replaces every substring occurrence, matching the
// legacy match_partial_words=true behaviour (spec.md §9 legacy upgrade
// scenario).
const (
	ModeWholeWords   = "Whole Words"
	ModePartialWords = "Partial Words"
)

// ApplySubstitutions replaces every key in subs with its value, according
// to mode. Keys are tried longest-first so overlapping substitutions
// (e.g. "Jon" and "Jon Snow") don't partially shadow each other.
func ApplySubstitutions(text string, subs map[string]string, mode string) string {
	if len(subs) == 0 || text == "" {
		return text
	}

	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sortByLengthDesc(keys)

	for _, key := range keys {
		if key == "" {
			continue
		}
		value := subs[key]
		if mode == ModePartialWords {
			text = strings.ReplaceAll(text, key, value)
			continue
		}
		text = replaceWholeWord(text, key, value)
	}

	return text
}

func sortByLengthDesc(keys []string) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && len(keys[j-1]) < len(keys[j]); j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}

func replaceWholeWord(text, key, value string) string {
	pattern := `(?i)\b` + regexp.QuoteMeta(key) + `\b`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, value)
}

// WrapOverlong inserts soft-break sentinels at word boundaries so that no
// display line inside text exceeds maxLineLength runes. Existing hard
// breaks ("\n") are treated as fixed split points and each is wrapped
// independently.
func WrapOverlong(text string, maxLineLength int) string {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}

	displayLines := strings.Split(text, "\n")
	for i, displayLine := range displayLines {
		displayLines[i] = wrapLine(displayLine, maxLineLength)
	}
	return strings.Join(displayLines, "\n")
}

func wrapLine(line string, maxLineLength int) string {
	words := strings.Split(line, " ")
	if len(words) <= 1 {
		return line
	}

	var sb strings.Builder
	lineLen := 0
	for i, word := range words {
		if i > 0 {
			if lineLen+1+len([]rune(word)) > maxLineLength && lineLen > 0 {
				sb.WriteString(wbrSentinel)
				lineLen = 0
			} else {
				sb.WriteString(" ")
				lineLen++
			}
		}
		sb.WriteString(word)
		lineLen += len([]rune(word))
	}
	return sb.String()
}

// Line runs substitutions and over-long wrapping on one subtitle line's
// text, using the project's settings.
func Line(line *subtitle.Line, settings subtitle.Settings) {
	if line == nil {
		return
	}
	subs := stringMap(settings["substitutions"])
	mode := settings.GetString("substitution_mode")
	if mode == "" {
		mode = ModeWholeWords
	}

	text := ApplySubstitutions(line.Text, subs, mode)
	text = WrapOverlong(text, DefaultMaxLineLength)
	line.Text = text
}

func stringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		result := make(map[string]string, len(m))
		for k, val := range m {
			if s, ok := val.(string); ok {
				result[k] = s
			}
		}
		return result
	default:
		return nil
	}
}
