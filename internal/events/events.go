// Package events implements the translation pipeline's observer bus:
// named signals a UI, autosave, or logger can subscribe to, dispatched
// synchronously after the editor mutex is released. Ported from
// original_source/PySubtrans/TranslationEvents.py's blinker.Signal
// container; Go has no garbage-collected weak references the way
// blinker does, so subscribers are kept for the bus's lifetime instead
// of being dropped when a closure goes out of scope (spec.md §9 "Event
// dispatch" explicitly drops the weak-reference requirement).
package events

import (
	"sync"

	"github.com/mgpai22/subtrans/internal/subtitle"
)

// Bus holds one subscriber list per signal. The zero value is usable.
type Bus struct {
	mu sync.RWMutex

	preprocessed    []func(scenes []*subtitle.Scene)
	batchTranslated []func(batch *subtitle.Batch)
	batchUpdated    []func(batch *subtitle.Batch)
	sceneTranslated []func(scene *subtitle.Scene)
	errorHandlers   []func(message string)
	warnHandlers    []func(message string)
	infoHandlers    []func(message string)
}

func New() *Bus { return &Bus{} }

func (b *Bus) OnPreprocessed(fn func(scenes []*subtitle.Scene)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preprocessed = append(b.preprocessed, fn)
}

func (b *Bus) OnBatchTranslated(fn func(batch *subtitle.Batch)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batchTranslated = append(b.batchTranslated, fn)
}

func (b *Bus) OnBatchUpdated(fn func(batch *subtitle.Batch)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batchUpdated = append(b.batchUpdated, fn)
}

func (b *Bus) OnSceneTranslated(fn func(scene *subtitle.Scene)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sceneTranslated = append(b.sceneTranslated, fn)
}

func (b *Bus) OnError(fn func(message string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorHandlers = append(b.errorHandlers, fn)
}

func (b *Bus) OnWarning(fn func(message string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warnHandlers = append(b.warnHandlers, fn)
}

func (b *Bus) OnInfo(fn func(message string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.infoHandlers = append(b.infoHandlers, fn)
}

func (b *Bus) EmitPreprocessed(scenes []*subtitle.Scene) {
	b.mu.RLock()
	handlers := append([]func([]*subtitle.Scene){}, b.preprocessed...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(scenes)
	}
}

func (b *Bus) EmitBatchTranslated(batch *subtitle.Batch) {
	b.mu.RLock()
	handlers := append([]func(*subtitle.Batch){}, b.batchTranslated...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(batch)
	}
}

func (b *Bus) EmitBatchUpdated(batch *subtitle.Batch) {
	b.mu.RLock()
	handlers := append([]func(*subtitle.Batch){}, b.batchUpdated...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(batch)
	}
}

func (b *Bus) EmitSceneTranslated(scene *subtitle.Scene) {
	b.mu.RLock()
	handlers := append([]func(*subtitle.Scene){}, b.sceneTranslated...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(scene)
	}
}

func (b *Bus) EmitError(message string) {
	b.mu.RLock()
	handlers := append([]func(string){}, b.errorHandlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(message)
	}
}

func (b *Bus) EmitWarning(message string) {
	b.mu.RLock()
	handlers := append([]func(string){}, b.warnHandlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(message)
	}
}

func (b *Bus) EmitInfo(message string) {
	b.mu.RLock()
	handlers := append([]func(string){}, b.infoHandlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(message)
	}
}
