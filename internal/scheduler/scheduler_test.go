package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/mgpai22/subtrans/internal/events"
	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/llm"
	"github.com/mgpai22/subtrans/internal/subtitle"
	"github.com/mgpai22/subtrans/internal/translator"
)

// erroringClient always fails Complete, simulating a fatal provider error
// (bad API key, quota exceeded) that the translator cannot retry past.
type erroringClient struct{}

func (erroringClient) Provider() string { return "erroring" }
func (erroringClient) Model() string    { return "erroring-model" }
func (erroringClient) Complete(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{}, errors.New("simulated fatal provider error")
}

func erroringFactory() ClientFactory {
	return func() (llm.Client, error) { return erroringClient{}, nil }
}

func line(n int) *subtitle.Line {
	return &subtitle.Line{Number: n, Text: "Hello there"}
}

func batch(scene, number int, lineNumbers ...int) *subtitle.Batch {
	b := &subtitle.Batch{SceneNumber: scene, Number: number}
	for _, n := range lineNumbers {
		b.Originals = append(b.Originals, line(n))
	}
	return b
}

func twoSceneTree() *subtitle.Subtitles {
	return &subtitle.Subtitles{
		Scenes: []*subtitle.Scene{
			{Number: 1, Batches: []*subtitle.Batch{batch(1, 1, 1, 2)}},
			{Number: 2, Batches: []*subtitle.Batch{batch(2, 1, 3, 4)}},
		},
		Settings: subtitle.Settings{},
	}
}

func loopbackFactory() ClientFactory {
	return func() (llm.Client, error) { return translator.NewLoopbackClient(), nil }
}

func TestRunSequentialTranslatesEveryBatchAndFiresEvents(t *testing.T) {
	subs := twoSceneTree()
	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	var batchEvents, sceneEvents int
	bus.OnBatchTranslated(func(*subtitle.Batch) { batchEvents++ })
	bus.OnSceneTranslated(func(*subtitle.Scene) { sceneEvents++ })

	sched, err := NewScheduler(editor, loopbackFactory(), instructions.New(nil, nil), bus, Options{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !subs.AllTranslated() {
		t.Fatalf("expected every line translated")
	}
	if batchEvents != 2 {
		t.Errorf("expected 2 batch_translated events, got %d", batchEvents)
	}
	if sceneEvents != 2 {
		t.Errorf("expected 2 scene_translated events, got %d", sceneEvents)
	}
}

func TestRunSequentialResumesOnlyPendingBatches(t *testing.T) {
	subs := twoSceneTree()
	subs.Scenes[0].Batches[0].Originals[0].Translation = "already done"
	subs.Scenes[0].Batches[0].Originals[1].Translation = "already done"

	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	var translatedBatches []*subtitle.Batch
	bus.OnBatchTranslated(func(b *subtitle.Batch) { translatedBatches = append(translatedBatches, b) })

	sched, err := NewScheduler(editor, loopbackFactory(), instructions.New(nil, nil), bus, Options{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(translatedBatches) != 1 {
		t.Fatalf("expected only the pending batch in scene 2 to run, got %d batch_translated events", len(translatedBatches))
	}
	if translatedBatches[0].SceneNumber != 2 {
		t.Errorf("expected the resumed batch to belong to scene 2, got scene %d", translatedBatches[0].SceneNumber)
	}
	if subs.Scenes[0].Batches[0].Originals[0].Translation != "already done" {
		t.Errorf("existing translation should not have been touched")
	}
}

func TestRunParallelTranslatesEveryBatch(t *testing.T) {
	subs := twoSceneTree()
	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	sched, err := NewScheduler(editor, loopbackFactory(), instructions.New(nil, nil), bus, Options{
		Parallel:    true,
		WorkerCount: 2,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !subs.AllTranslated() {
		t.Fatalf("expected every line translated")
	}
}

func TestNewSchedulerRefusesParallelForRateLimitedProvider(t *testing.T) {
	editor := subtitle.NewEditor(twoSceneTree(), nil)
	bus := events.New()

	rateLimited := func() (llm.Client, error) {
		return llm.NewRateLimited(translator.NewLoopbackClient(), 2), nil
	}

	_, err := NewScheduler(editor, rateLimited, instructions.New(nil, nil), bus, Options{Parallel: true})
	if err != ErrRateLimitedProvider {
		t.Fatalf("expected ErrRateLimitedProvider, got %v", err)
	}
}

func TestAbortStopsSequentialRunBeforeLaterScenes(t *testing.T) {
	subs := twoSceneTree()
	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	sched, err := NewScheduler(editor, loopbackFactory(), instructions.New(nil, nil), bus, Options{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	sched.Abort()

	err = sched.Run(context.Background())
	if err != ErrAborted {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if subs.Scenes[0].AllTranslated() || subs.Scenes[1].AllTranslated() {
		t.Errorf("expected no scenes translated after immediate abort")
	}
}

func TestRunSequentialRestrictsToSelectedScenes(t *testing.T) {
	subs := twoSceneTree()
	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	sched, err := NewScheduler(editor, loopbackFactory(), instructions.New(nil, nil), bus, Options{
		Scenes: []int{2},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if subs.Scenes[0].AnyTranslated() {
		t.Errorf("expected scene 1 to be left untouched by --scenes 2")
	}
	if !subs.Scenes[1].AllTranslated() {
		t.Errorf("expected scene 2 to be fully translated")
	}
}

func TestRunSequentialReturnsErrBatchFailedOnFatalProviderError(t *testing.T) {
	subs := twoSceneTree()
	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	var errorEvents int
	bus.OnError(func(string) { errorEvents++ })

	sched, err := NewScheduler(editor, erroringFactory(), instructions.New(nil, nil), bus, Options{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	runErr := sched.Run(context.Background())
	if runErr != ErrBatchFailed {
		t.Fatalf("expected ErrBatchFailed, got %v", runErr)
	}
	if errorEvents == 0 {
		t.Errorf("expected at least one error event to be emitted")
	}
}

func TestRunParallelReturnsErrBatchFailedOnFatalProviderError(t *testing.T) {
	subs := twoSceneTree()
	editor := subtitle.NewEditor(subs, nil)
	bus := events.New()

	sched, err := NewScheduler(editor, erroringFactory(), instructions.New(nil, nil), bus, Options{
		Parallel:    true,
		WorkerCount: 2,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	runErr := sched.Run(context.Background())
	if runErr != ErrBatchFailed {
		t.Fatalf("expected ErrBatchFailed, got %v", runErr)
	}
}

func TestDiscoverNamesFindsCapitalisedTokens(t *testing.T) {
	names := discoverNames("Hello there, Maria went to Paris.")
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["Maria"] || !found["Paris"] {
		t.Errorf("expected to discover Maria and Paris, got %v", names)
	}
}
