// Package scheduler drives a Subtitles tree's scenes and batches through
// the translator, in sequential or parallel ("fast") mode, per spec.md
// §4.6. It owns resume (skipping already-translated work), rolling
// scene context (names/summaries), and cooperative cancellation.
package scheduler

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/mgpai22/subtrans/internal/events"
	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/llm"
	"github.com/mgpai22/subtrans/internal/subtitle"
	"github.com/mgpai22/subtrans/internal/translator"
)

// ErrRateLimitedProvider is returned by NewScheduler when parallel mode is
// requested against a client that enforces its own non-zero rate limit.
// Per spec.md §9, this is an explicit refusal rather than a silent
// downgrade to sequential mode: the caller must choose one or the other.
var ErrRateLimitedProvider = errors.New("scheduler: parallel mode refused, provider enforces a rate limit")

// ErrAborted is returned by Run when the caller requested cancellation via
// Abort before or during the run.
var ErrAborted = errors.New("scheduler: aborted")

// ErrBatchFailed is returned by Run when every pending batch ran to
// completion (no abort) but at least one ended in a terminal llmerr.Error
// (fatal provider error or exhausted misalignment retries), per spec.md
// §8 scenario 4's "exit code non-zero". Results obtained for every other
// batch are kept in the tree.
var ErrBatchFailed = errors.New("scheduler: one or more batches failed")

// maxSummaryHistory bounds the rolling scene summary fed forward as
// context to the next batch, per spec.md §4.6.
const maxSummaryHistory = 10

// ClientFactory builds one llm.Client instance. The scheduler calls it
// once per worker (sequential mode uses one worker), since clients are
// never shared across workers, per spec.md §5.
type ClientFactory func() (llm.Client, error)

// Options configures a Scheduler run.
type Options struct {
	Parallel     bool
	WorkerCount  int // parallel mode only; default 1
	Translator   translator.Options
	OnAutosave   func() error // called after each batch completes, may be nil
	Description  string       // project-level description fed to every batch's context
	InitialNames []string     // project-level name list (settings["names"])
	Scenes       []int        // if non-empty, restricts the run to these scene numbers (CLI --scenes)
}

// sceneSelected reports whether scene number n should be translated this
// run. An empty Scenes list selects everything.
func (o Options) sceneSelected(n int) bool {
	if len(o.Scenes) == 0 {
		return true
	}
	for _, s := range o.Scenes {
		if s == n {
			return true
		}
	}
	return false
}

// Scheduler drives subtitles through translation.
type Scheduler struct {
	editor  *subtitle.Editor
	clients ClientFactory
	ins     *instructions.Instructions
	opts    Options
	bus     *events.Bus

	abort sync.Once
	stop  chan struct{}
}

// NewScheduler constructs a Scheduler. It probes clients by building one
// client from the factory; if opts.Parallel is set and that client
// reports a non-zero rate limit, construction fails with
// ErrRateLimitedProvider and the probed client is discarded.
func NewScheduler(editor *subtitle.Editor, clients ClientFactory, ins *instructions.Instructions, bus *events.Bus, opts Options) (*Scheduler, error) {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.Translator.MaxRetries == 0 && opts.Translator.RetryOptions == (llm.RetryOptions{}) {
		opts.Translator = translator.DefaultOptions()
	}

	if opts.Parallel {
		probe, err := clients()
		if err != nil {
			return nil, err
		}
		if rl, ok := probe.(llm.RateLimited); ok && rl.RequestsPerSecond() > 0 {
			return nil, ErrRateLimitedProvider
		}
	}

	return &Scheduler{
		editor:  editor,
		clients: clients,
		ins:     ins,
		opts:    opts,
		bus:     bus,
		stop:    make(chan struct{}),
	}, nil
}

// Abort requests cancellation. Safe to call more than once and from any
// goroutine; Run observes it at its next suspension point.
func (s *Scheduler) Abort() {
	s.abort.Do(func() { close(s.stop) })
}

func (s *Scheduler) aborted() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Run translates every untranslated batch in the tree. It returns
// ErrAborted if Abort was called before the run could complete (results
// obtained before the abort was observed are kept in the tree).
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.Parallel {
		return s.runParallel(ctx)
	}
	return s.runSequential(ctx)
}

// runSequential translates one batch at a time, scene by scene, in
// order, per spec.md §4.6's "Sequential" mode.
func (s *Scheduler) runSequential(ctx context.Context) error {
	client, err := s.clients()
	if err != nil {
		return err
	}
	bt := translator.NewBatchTranslator(client, s.ins, s.opts.Translator)
	bt.OnEvent(s.bus.EmitWarning)

	history := newRollingContext(s.opts.Description, s.opts.InitialNames)

	var scenes []*subtitle.Scene
	s.editor.View(func(subs *subtitle.Subtitles) { scenes = append(scenes, subs.Scenes...) })

	failed := false

	for _, scene := range scenes {
		if s.aborted() {
			return ErrAborted
		}
		if scene.AllTranslated() {
			history.absorbScene(scene)
			continue
		}
		if !s.opts.sceneSelected(scene.Number) {
			continue
		}

		for _, batch := range scene.PendingBatches() {
			if s.aborted() {
				return ErrAborted
			}

			batch.Context = history.contextFor()
			translateErr := bt.Translate(ctx, batch)

			if s.aborted() {
				return ErrAborted
			}

			if translateErr != nil {
				s.bus.EmitError(translateErr.Error())
				failed = true
			} else {
				history.absorbBatch(batch)
				if batch.SceneSummary != "" {
					scene.Summary = batch.SceneSummary
				}
			}

			if err := s.editor.Do(func(*subtitle.Subtitles) error { return nil }); err != nil {
				s.bus.EmitError(err.Error())
			}
			s.bus.EmitBatchTranslated(batch)

			if s.opts.OnAutosave != nil {
				if err := s.opts.OnAutosave(); err != nil {
					s.bus.EmitError(err.Error())
				}
			}
		}

		if scene.AllTranslated() {
			s.bus.EmitSceneTranslated(scene)
		}
	}

	if failed {
		return ErrBatchFailed
	}
	return nil
}

// runParallel submits every pending batch across all scenes to a fixed
// worker pool. Ordering between events from different batches is not
// guaranteed, but batch_translated for a given batch always precedes
// scene_translated for its scene, per spec.md §4.6 and §5.
func (s *Scheduler) runParallel(ctx context.Context) error {
	var pending []*subtitle.Batch
	sceneOf := map[*subtitle.Batch]*subtitle.Scene{}
	sceneRemaining := map[int]int{}

	var scenes []*subtitle.Scene
	s.editor.View(func(subs *subtitle.Subtitles) { scenes = append(scenes, subs.Scenes...) })

	for _, scene := range scenes {
		if !s.opts.sceneSelected(scene.Number) {
			continue
		}
		for _, batch := range scene.PendingBatches() {
			pending = append(pending, batch)
			sceneOf[batch] = scene
			sceneRemaining[scene.Number]++
		}
	}

	jobs := make(chan *subtitle.Batch)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var sceneMu sync.Mutex
	var failed atomic.Bool

	worker := func() {
		defer wg.Done()
		client, err := s.clients()
		if err != nil {
			s.bus.EmitError(err.Error())
			failed.Store(true)
			return
		}
		bt := translator.NewBatchTranslator(client, s.ins, s.opts.Translator)
		bt.OnEvent(s.bus.EmitWarning)

		for batch := range jobs {
			if s.aborted() || ctx.Err() != nil {
				continue
			}

			batch.Context = subtitle.BatchContext{
				Names:       s.opts.InitialNames,
				Description: s.opts.Description,
			}
			translateErr := bt.Translate(ctx, batch)

			scene := sceneOf[batch]

			if translateErr != nil {
				s.bus.EmitError(translateErr.Error())
				failed.Store(true)
			} else if batch.SceneSummary != "" {
				sceneMu.Lock()
				scene.Summary = batch.SceneSummary
				sceneMu.Unlock()
			}

			if err := s.editor.Do(func(*subtitle.Subtitles) error { return nil }); err != nil {
				s.bus.EmitError(err.Error())
			}
			s.bus.EmitBatchTranslated(batch)

			if s.opts.OnAutosave != nil {
				if err := s.opts.OnAutosave(); err != nil {
					s.bus.EmitError(err.Error())
				}
			}

			sceneMu.Lock()
			sceneRemaining[scene.Number]--
			done := sceneRemaining[scene.Number] == 0
			sceneMu.Unlock()
			if done && scene.AllTranslated() {
				s.bus.EmitSceneTranslated(scene)
			}
		}
	}

	for i := 0; i < s.opts.WorkerCount; i++ {
		wg.Add(1)
		go worker()
	}

	go func() {
		defer close(jobs)
		for _, batch := range pending {
			if s.aborted() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- batch:
			}
		}
	}()

	wg.Wait()

	if s.aborted() {
		return ErrAborted
	}
	if failed.Load() {
		return ErrBatchFailed
	}
	return nil
}

// rollingContext accumulates the names and summary history fed forward as
// batch context, per spec.md §4.6's "rolling summary" and "newly
// discovered names" requirements.
type rollingContext struct {
	description string
	names       map[string]bool
	order       []string
	history     []string
}

func newRollingContext(description string, initialNames []string) *rollingContext {
	rc := &rollingContext{description: description, names: map[string]bool{}}
	for _, name := range initialNames {
		rc.addName(name)
	}
	return rc
}

func (rc *rollingContext) addName(name string) {
	if name == "" || rc.names[name] {
		return
	}
	rc.names[name] = true
	rc.order = append(rc.order, name)
}

func (rc *rollingContext) contextFor() subtitle.BatchContext {
	history := rc.history
	if len(history) > maxSummaryHistory {
		history = history[len(history)-maxSummaryHistory:]
	}
	return subtitle.BatchContext{
		Names:       append([]string{}, rc.order...),
		Description: rc.description,
		History:     append([]string{}, history...),
	}
}

func (rc *rollingContext) absorbBatch(batch *subtitle.Batch) {
	if batch.Summary != "" {
		rc.history = append(rc.history, batch.Summary)
	}
	for _, line := range batch.Originals {
		for _, name := range discoverNames(line.Text) {
			rc.addName(name)
		}
	}
}

func (rc *rollingContext) absorbScene(scene *subtitle.Scene) {
	if scene.Summary != "" {
		rc.history = append(rc.history, scene.Summary)
	}
}

// capitalizedTokenRe finds runs of capitalised words (candidate proper
// nouns), a best-effort heuristic per spec.md §4.6 ("a best-effort
// pattern scan of capitalised tokens").
var capitalizedTokenRe = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

func discoverNames(text string) []string {
	return capitalizedTokenRe.FindAllString(text, -1)
}
