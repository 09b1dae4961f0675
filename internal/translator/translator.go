// Package translator drives the per-batch translation state machine
// described in spec.md §4.5: Pending -> Requesting -> Parsing ->
// PostProcessing -> Translated, with Retrying(k) branches for transient
// provider errors and misaligned responses, and a terminal Failed state.
package translator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/llm"
	"github.com/mgpai22/subtrans/internal/llmerr"
	"github.com/mgpai22/subtrans/internal/subtitle"
)

// Options configures retry limits and post-processing.
type Options struct {
	MaxRetries          int // misalignment repair retries
	RetryOptions        llm.RetryOptions
	AddRightToLeftMarks bool
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:   2,
		RetryOptions: llm.DefaultRetryOptions(),
	}
}

// BatchTranslator drives one batch through the state machine.
type BatchTranslator struct {
	client  llm.Client
	ins     *instructions.Instructions
	opts    Options
	onEvent func(message string)
}

func NewBatchTranslator(client llm.Client, ins *instructions.Instructions, opts Options) *BatchTranslator {
	return &BatchTranslator{client: client, ins: ins, opts: opts}
}

// OnEvent registers a callback invoked with warning/info text as the
// state machine progresses (wired to events.Bus by the caller).
func (t *BatchTranslator) OnEvent(fn func(message string)) { t.onEvent = fn }

func (t *BatchTranslator) emit(format string, args ...any) {
	if t.onEvent != nil {
		t.onEvent(fmt.Sprintf(format, args...))
	}
}

// Translate runs batch through the state machine to completion. It
// returns the terminal llmerr.Error (with Kind Fatal, Misaligned, or
// Aborted) if the batch could not be translated; nil on success.
// batch.Errors and batch.Originals[i].Translation are updated in place
// regardless of outcome, per the partial-progress behaviour spec.md §8
// scenario 4 requires.
func (t *BatchTranslator) Translate(ctx context.Context, batch *subtitle.Batch) error {
	retryNote := ""

	for attempt := 0; ; attempt++ {
		batch.ResetErrors()

		if ctx.Err() != nil {
			batch.AddError("aborted: " + ctx.Err().Error())
			return llmerr.Wrap(llmerr.KindAborted, "scheduler", ctx.Err())
		}

		// Requesting
		prompt := BuildPrompt(t.ins, batch, retryNote)
		resp, err := llm.CompleteWithRetry(ctx, t.client, llm.Request{
			System: t.ins.Instructions,
			User:   prompt,
		}, t.opts.RetryOptions, nil)

		if err != nil {
			kind, _ := llmerr.KindOf(err)
			batch.AddError(err.Error())
			if kind == llmerr.KindAborted {
				return err
			}
			return llmerr.Wrap(llmerr.KindFatal, t.client.Provider(), err)
		}

		// Parsing
		parsed := ParseResponse(resp.Text)

		misaligned, reason, warnings := validateAlignment(batch, parsed)
		for _, w := range warnings {
			t.emit("batch %d: %s", batch.Number, w)
		}
		if misaligned {
			batch.AddError(reason)
			if attempt >= t.opts.MaxRetries {
				return llmerr.New(llmerr.KindMisaligned, t.client.Provider(), reason)
			}
			t.emit("batch %d: %s, retrying (%d/%d)", batch.Number, reason, attempt+1, t.opts.MaxRetries)
			retryNote = t.ins.RetryInstructions
			continue
		}

		// PostProcessing -> Translated
		t.applyTranslations(batch, parsed)
		batch.Summary = parsed.Summary
		batch.SceneSummary = parsed.Scene
		return nil
	}
}

func (t *BatchTranslator) applyTranslations(batch *subtitle.Batch, parsed ParsedResponse) {
	batch.Translated = batch.Translated[:0]
	for _, line := range batch.Originals {
		translation, ok := parsed.Translations[line.Number]
		if ok {
			line.Translation = postProcess(translation, t.opts.AddRightToLeftMarks)
		}
		if line.Translated() {
			batch.Translated = append(batch.Translated, line.Clone())
		}
	}
}

// validateAlignment enforces spec.md §4.5's Validation rules. Strays (#N
// not present in the batch) are dropped with a warning rather than
// causing a retry; a soft/hard line-break marker count that differs from
// the original is also a warning, not a misalignment.
func validateAlignment(batch *subtitle.Batch, parsed ParsedResponse) (misaligned bool, reason string, warnings []string) {
	if len(parsed.Duplicates) > 0 {
		return true, fmt.Sprintf("duplicate translation blocks for lines %v", parsed.Duplicates), nil
	}

	originals := map[int]*subtitle.Line{}
	for _, line := range batch.Originals {
		originals[line.Number] = line
	}

	var missing []int
	for _, line := range batch.Originals {
		if _, ok := parsed.Translations[line.Number]; !ok {
			missing = append(missing, line.Number)
		}
	}
	if len(missing) > 0 {
		return true, fmt.Sprintf("missing translations for lines %v", missing), nil
	}

	var strays []int
	for n := range parsed.Translations {
		if originals[n] == nil {
			strays = append(strays, n)
			delete(parsed.Translations, n)
		}
	}
	if len(strays) > 0 {
		sort.Ints(strays)
		warnings = append(warnings, fmt.Sprintf("dropped stray translation blocks not in batch: %v", strays))
	}

	var breakMismatches []int
	for n, translation := range parsed.Translations {
		if breakCounts(originals[n].Text) != breakCounts(translation) {
			breakMismatches = append(breakMismatches, n)
		}
	}
	if len(breakMismatches) > 0 {
		sort.Ints(breakMismatches)
		warnings = append(warnings, fmt.Sprintf("line-break marker count differs from original for lines %v", breakMismatches))
	}

	return false, "", warnings
}

// breakCounts counts the internal hard-break ("\n") and soft-break
// ("<wbr>") sentinels in text, for comparing a translation's line-break
// structure against its original per spec.md §4.5.
func breakCounts(text string) [2]int {
	return [2]int{strings.Count(text, "\n"), strings.Count(text, "<wbr>")}
}

var rtlCharRe = regexp.MustCompile(`[\x{0590}-\x{08FF}\x{FB1D}-\x{FDFF}\x{FE70}-\x{FEFF}]`)

const (
	rtlMark = "‏"
)

// postProcess adds RTL marks around text detected as predominantly
// right-to-left when requested. Soft-break sentinels are left untouched
// here; the format handler's Compose step converts them back to the
// target format's native soft break.
func postProcess(text string, addRTLMarks bool) string {
	if !addRTLMarks {
		return text
	}
	if !isPredominantlyRTL(text) {
		return text
	}
	return rtlMark + text + rtlMark
}

func isPredominantlyRTL(text string) bool {
	rtlCount := len(rtlCharRe.FindAllString(text, -1))
	total := len([]rune(strings.TrimSpace(text)))
	if total == 0 {
		return false
	}
	return float64(rtlCount)/float64(total) > 0.5
}
