package translator

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedResponse is the result of recognising one LLM response: the
// per-line translations keyed by original line number, any stray #N
// blocks dropped (not present in the batch), and the trailing
// <summary>/<scene> tags.
type ParsedResponse struct {
	Translations map[int]string
	Duplicates   []int
	Summary      string
	Scene        string
}

var stanzaMarkerRe = regexp.MustCompile(`(?m)^#(\d+)\s*$`)

// ParseResponse is a small line-oriented recogniser: it consumes #N,
// Original>, Translation> markers and captures the translation body
// until the next # marker or an XML tag other than the <wbr> sentinel,
// per spec.md §4.5.
func ParseResponse(text string) ParsedResponse {
	result := ParsedResponse{Translations: map[int]string{}}

	markers := stanzaMarkerRe.FindAllStringSubmatchIndex(text, -1)
	seen := map[int]bool{}

	for i, m := range markers {
		lineNumber, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}

		stanzaStart := m[1]
		stanzaEnd := len(text)
		if i+1 < len(markers) {
			stanzaEnd = markers[i+1][0]
		}
		stanza := text[stanzaStart:stanzaEnd]

		translation := extractTranslation(stanza)
		if translation == "" {
			continue
		}

		if seen[lineNumber] {
			result.Duplicates = append(result.Duplicates, lineNumber)
			continue
		}
		seen[lineNumber] = true
		result.Translations[lineNumber] = translation
	}

	result.Summary = extractTag(text, "summary")
	result.Scene = extractTag(text, "scene")

	return result
}

var translationMarkerRe = regexp.MustCompile(`(?m)^Translation>\s*$`)

// extractTranslation finds the Translation> marker within one stanza and
// returns everything after it up to the first XML-style tag other than
// the <wbr> soft-break sentinel, or the end of the stanza.
func extractTranslation(stanza string) string {
	loc := translationMarkerRe.FindStringIndex(stanza)
	if loc == nil {
		return ""
	}
	body := stanza[loc[1]:]

	for from := 0; ; {
		tagIdx := strings.Index(body[from:], "<")
		if tagIdx < 0 {
			break
		}
		tagIdx += from
		if strings.HasPrefix(body[tagIdx:], "<wbr>") {
			from = tagIdx + len("<wbr>")
			continue
		}
		body = body[:tagIdx]
		break
	}

	return strings.TrimSpace(body)
}

func extractTag(text, tag string) string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	start := strings.Index(text, open)
	if start == -1 {
		return ""
	}
	start += len(open)
	end := strings.Index(text[start:], closeTag)
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(text[start : start+end])
}
