package translator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/llm"
	"github.com/mgpai22/subtrans/internal/llmerr"
	"github.com/mgpai22/subtrans/internal/subtitle"
)

var errFatalTest = errors.New("simulated fatal provider error")

func testInstructions() *instructions.Instructions {
	return instructions.New(map[string]any{"target_language": "French"}, nil)
}

func testBatch() *subtitle.Batch {
	return &subtitle.Batch{
		SceneNumber: 1,
		Number:      1,
		Originals: []*subtitle.Line{
			{Number: 1, Start: 0, End: time.Second, Text: "Hello"},
			{Number: 2, Start: time.Second, End: 2 * time.Second, Text: "Goodbye"},
		},
	}
}

func TestTranslateWithLoopbackClientSucceeds(t *testing.T) {
	bt := NewBatchTranslator(NewLoopbackClient(), testInstructions(), DefaultOptions())
	batch := testBatch()

	if err := bt.Translate(context.Background(), batch); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}

	if !batch.AllTranslated() {
		t.Fatalf("expected all lines translated")
	}
	for _, line := range batch.Originals {
		if line.Translation != ">> "+line.Text {
			t.Errorf("line %d: got translation %q", line.Number, line.Translation)
		}
	}
	if len(batch.Translated) != 2 {
		t.Errorf("expected 2 translated clones, got %d", len(batch.Translated))
	}
	if len(batch.Errors) != 0 {
		t.Errorf("expected no errors, got %v", batch.Errors)
	}
}

func TestTranslateRecoversFromMisalignmentViaRetry(t *testing.T) {
	bt := NewBatchTranslator(NewFlakyClient(), testInstructions(), DefaultOptions())
	batch := testBatch()

	var warnings []string
	bt.OnEvent(func(msg string) { warnings = append(warnings, msg) })

	if err := bt.Translate(context.Background(), batch); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if !batch.AllTranslated() {
		t.Fatalf("expected all lines translated after repair retry")
	}
	if len(warnings) == 0 {
		t.Errorf("expected at least one retry event to be emitted")
	}
	if len(batch.Errors) != 0 {
		t.Errorf("expected Errors to reflect only the successful final attempt, got %v", batch.Errors)
	}
}

func TestTranslateFailsAfterExhaustingRetries(t *testing.T) {
	client := &alwaysMisalignedClient{}
	opts := DefaultOptions()
	opts.MaxRetries = 1
	bt := NewBatchTranslator(client, testInstructions(), opts)
	batch := testBatch()

	err := bt.Translate(context.Background(), batch)
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	kind, ok := llmerr.KindOf(err)
	if !ok || kind != llmerr.KindMisaligned {
		t.Errorf("expected KindMisaligned, got %v (ok=%v)", kind, ok)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 attempts (1 initial + 1 retry), got %d", client.calls)
	}
}

func TestTranslateReturnsFatalOnClientError(t *testing.T) {
	bt := NewBatchTranslator(&erroringClient{}, testInstructions(), DefaultOptions())
	batch := testBatch()

	err := bt.Translate(context.Background(), batch)
	if err == nil {
		t.Fatalf("expected an error")
	}
	kind, ok := llmerr.KindOf(err)
	if !ok || kind != llmerr.KindFatal {
		t.Errorf("expected KindFatal, got %v (ok=%v)", kind, ok)
	}
}

func TestTranslateAbortsOnCancelledContext(t *testing.T) {
	bt := NewBatchTranslator(NewLoopbackClient(), testInstructions(), DefaultOptions())
	batch := testBatch()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bt.Translate(ctx, batch)
	if err == nil {
		t.Fatalf("expected an error")
	}
	kind, ok := llmerr.KindOf(err)
	if !ok || kind != llmerr.KindAborted {
		t.Errorf("expected KindAborted, got %v (ok=%v)", kind, ok)
	}
}

func TestValidateAlignmentDropsStrayLines(t *testing.T) {
	batch := testBatch()
	parsed := ParsedResponse{Translations: map[int]string{
		1: "Bonjour",
		2: "Au revoir",
		9: "stray",
	}}

	misaligned, reason, warnings := validateAlignment(batch, parsed)
	if misaligned {
		t.Fatalf("did not expect misalignment, got reason %q", reason)
	}
	if _, ok := parsed.Translations[9]; ok {
		t.Errorf("expected stray line 9 to be dropped")
	}
	if len(warnings) == 0 {
		t.Errorf("expected a warning about the dropped stray block")
	}
}

func TestValidateAlignmentDetectsMissingLine(t *testing.T) {
	batch := testBatch()
	parsed := ParsedResponse{Translations: map[int]string{1: "Bonjour"}}

	misaligned, _, _ := validateAlignment(batch, parsed)
	if !misaligned {
		t.Fatalf("expected misalignment for missing line 2")
	}
}

func TestValidateAlignmentWarnsOnBreakCountMismatch(t *testing.T) {
	batch := testBatch()
	batch.Originals[0].Text = "Hello\nthere"
	parsed := ParsedResponse{Translations: map[int]string{
		1: "Bonjour",
		2: "Au revoir",
	}}

	misaligned, reason, warnings := validateAlignment(batch, parsed)
	if misaligned {
		t.Fatalf("break-count mismatch should warn, not misalign, got reason %q", reason)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "line-break marker count") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a line-break count mismatch warning, got %v", warnings)
	}
}

func TestIsPredominantlyRTLDetectsHebrew(t *testing.T) {
	if !isPredominantlyRTL("שלום עולם") {
		t.Errorf("expected Hebrew text to be detected as RTL")
	}
	if isPredominantlyRTL("Hello world") {
		t.Errorf("did not expect English text to be detected as RTL")
	}
}

// alwaysMisalignedClient always returns a response missing the second
// line's translation, so every attempt is misaligned.
type alwaysMisalignedClient struct {
	calls int
}

func (c *alwaysMisalignedClient) Provider() string { return "misaligned" }
func (c *alwaysMisalignedClient) Model() string    { return "misaligned-test" }

func (c *alwaysMisalignedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	c.calls++
	return llm.Response{Text: "#1\nOriginal>\nHello\nTranslation>\nBonjour"}, nil
}

type erroringClient struct{}

func (c *erroringClient) Provider() string { return "erroring" }
func (c *erroringClient) Model() string    { return "erroring-test" }

func (c *erroringClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{}, errFatalTest
}
