package subtitle

import (
	"fmt"
	"sync"

	"github.com/mgpai22/subtrans/internal/llmerr"
)

// Editor is the sole mutation path into a Subtitles tree. It guarantees
// that Sanitise runs after every successful scope, and that the
// caller-supplied dirty callback only fires on success, per spec.md §4.2.
// The dirty callback is the only notification; the Editor emits no
// change event of its own. Do serialises scopes under a mutex so a
// parallel scheduler's workers can each hold an Editor reference to the
// same tree without racing, per spec.md §5's "mutex-guarded shared tree."
type Editor struct {
	mu         sync.Mutex
	subtitles  *Subtitles
	onComplete func(success bool)
	changed    bool
}

// NewEditor returns an Editor over subtitles. onComplete, if non-nil, is
// invoked with true after a scope that completes without error, and is
// never invoked after a failing scope.
func NewEditor(subtitles *Subtitles, onComplete func(success bool)) *Editor {
	return &Editor{subtitles: subtitles, onComplete: onComplete}
}

// Do runs fn against the tree as a single scope. If fn returns an error,
// the tree is left exactly as it was on entry (callers are expected to
// mutate only through the Editor's Add/Replace/Remove/Update helpers,
// which validate before mutating) and the dirty callback is not invoked.
// On success, Sanitise runs and the dirty callback fires.
func (e *Editor) Do(fn func(*Subtitles) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.subtitles); err != nil {
		return err
	}
	e.Sanitise()
	if e.onComplete != nil {
		e.onComplete(true)
	}
	return nil
}

// View runs fn against the tree under the same mutex Do uses, for callers
// that only need to read (e.g. the scheduler picking the next pending
// batch) without triggering Sanitise or the dirty callback.
func (e *Editor) View(fn func(*Subtitles)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.subtitles)
}

// Sanitise renumbers scenes and batches from 1, sets each batch's
// SceneNumber to its scene's new number, and drops empty batches. It is idempotent and is also run
// once after project decode.
func (e *Editor) Sanitise() {
	Sanitise(e.subtitles)
}

// AddScene appends a new scene and returns it.
func (e *Editor) AddScene(scene *Scene) error {
	return e.Do(func(s *Subtitles) error {
		s.Scenes = append(s.Scenes, scene)
		return nil
	})
}

// ReplaceScene replaces the scene with the given number.
func (e *Editor) ReplaceScene(number int, scene *Scene) error {
	return e.Do(func(s *Subtitles) error {
		for i, existing := range s.Scenes {
			if existing.Number == number {
				s.Scenes[i] = scene
				return nil
			}
		}
		return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown scene %d", number))
	})
}

// RemoveScene removes the scene with the given number.
func (e *Editor) RemoveScene(number int) error {
	return e.Do(func(s *Subtitles) error {
		for i, existing := range s.Scenes {
			if existing.Number == number {
				s.Scenes = append(s.Scenes[:i], s.Scenes[i+1:]...)
				return nil
			}
		}
		return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown scene %d", number))
	})
}

// ReplaceBatch replaces a batch within a scene, validating that the
// replacement keeps every original line number unique within the batch.
func (e *Editor) ReplaceBatch(sceneNumber, batchNumber int, batch *Batch) error {
	return e.Do(func(s *Subtitles) error {
		scene := s.GetScene(sceneNumber)
		if scene == nil {
			return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown scene %d", sceneNumber))
		}
		seen := map[int]bool{}
		for _, line := range batch.Originals {
			if seen[line.Number] {
				return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("duplicate line number %d in batch", line.Number))
			}
			seen[line.Number] = true
		}
		for i, existing := range scene.Batches {
			if existing.Number == batchNumber {
				scene.Batches[i] = batch
				return nil
			}
		}
		return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown batch %d in scene %d", batchNumber, sceneNumber))
	})
}

// RemoveBatch removes a batch from its scene.
func (e *Editor) RemoveBatch(sceneNumber, batchNumber int) error {
	return e.Do(func(s *Subtitles) error {
		scene := s.GetScene(sceneNumber)
		if scene == nil {
			return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown scene %d", sceneNumber))
		}
		for i, existing := range scene.Batches {
			if existing.Number == batchNumber {
				scene.Batches = append(scene.Batches[:i], scene.Batches[i+1:]...)
				return nil
			}
		}
		return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown batch %d in scene %d", batchNumber, sceneNumber))
	})
}

// UpdateLine updates the original text/metadata of a single line, found by
// its batch membership.
func (e *Editor) UpdateLine(sceneNumber, batchNumber int, line *Line) error {
	return e.Do(func(s *Subtitles) error {
		scene := s.GetScene(sceneNumber)
		if scene == nil {
			return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown scene %d", sceneNumber))
		}
		batch := scene.GetBatch(batchNumber)
		if batch == nil {
			return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown batch %d in scene %d", batchNumber, sceneNumber))
		}
		for i, existing := range batch.Originals {
			if existing.Number == line.Number {
				batch.Originals[i] = line
				return nil
			}
		}
		return llmerr.New(llmerr.KindInvariant, "editor", fmt.Sprintf("unknown line %d in batch %d", line.Number, batchNumber))
	})
}

// UpdateSettings merges settings into the tree's settings map. Filtering
// against the allow-list is the caller's (internal/project) job, since
// only the project knows about legacy-key rewrites.
func (e *Editor) UpdateSettings(settings Settings) error {
	return e.Do(func(s *Subtitles) error {
		if s.Settings == nil {
			s.Settings = Settings{}
		}
		for k, v := range settings {
			s.Settings[k] = v
		}
		return nil
	})
}
