package subtitle

import "testing"

func newTestLine(number int) *Line {
	return &Line{Number: number, Text: "hello"}
}

func newTestBatch(scene, number int, lineNumbers ...int) *Batch {
	b := &Batch{SceneNumber: scene, Number: number}
	for _, n := range lineNumbers {
		b.Originals = append(b.Originals, newTestLine(n))
	}
	return b
}

func TestSanitiseRenumbersScenesAndBatches(t *testing.T) {
	subs := &Subtitles{
		Scenes: []*Scene{
			{Number: 5, Batches: []*Batch{newTestBatch(5, 9, 1, 2), newTestBatch(5, 1, 3, 4)}},
			{Number: 2, Batches: []*Batch{newTestBatch(2, 1, 5, 6)}},
		},
	}

	Sanitise(subs)

	if got := subs.Scenes[0].Number; got != 1 {
		t.Fatalf("scene[0].Number = %d, want 1", got)
	}
	if got := subs.Scenes[1].Number; got != 2 {
		t.Fatalf("scene[1].Number = %d, want 2", got)
	}
	for _, scene := range subs.Scenes {
		for i, batch := range scene.Batches {
			if batch.Number != i+1 {
				t.Fatalf("scene %d batch[%d].Number = %d, want %d", scene.Number, i, batch.Number, i+1)
			}
			if batch.SceneNumber != scene.Number {
				t.Fatalf("batch.SceneNumber = %d, want %d", batch.SceneNumber, scene.Number)
			}
		}
	}
}

func TestSanitiseDropsEmptyBatches(t *testing.T) {
	subs := &Subtitles{
		Scenes: []*Scene{
			{Number: 1, Batches: []*Batch{
				newTestBatch(1, 1, 1, 2),
				{SceneNumber: 1, Number: 2}, // empty
				newTestBatch(1, 3, 3),
			}},
		},
	}

	Sanitise(subs)

	if len(subs.Scenes[0].Batches) != 2 {
		t.Fatalf("expected 2 batches after dropping empty one, got %d", len(subs.Scenes[0].Batches))
	}
	if subs.Scenes[0].Batches[1].Number != 2 {
		t.Fatalf("expected second surviving batch renumbered to 2, got %d", subs.Scenes[0].Batches[1].Number)
	}
}

func TestEditorAtomicityOnFailure(t *testing.T) {
	subs := &Subtitles{Scenes: []*Scene{{Number: 1, Batches: []*Batch{newTestBatch(1, 1, 1, 2)}}}}

	dirty := false
	editor := NewEditor(subs, func(success bool) {
		if success {
			dirty = true
		}
	})

	err := editor.ReplaceBatch(1, 99, newTestBatch(1, 99, 3, 4))
	if err == nil {
		t.Fatal("expected error replacing unknown batch")
	}
	if dirty {
		t.Fatal("dirty callback must not fire on failure")
	}
	if len(subs.Scenes[0].Batches) != 1 || subs.Scenes[0].Batches[0].Number != 1 {
		t.Fatal("tree must be unchanged after a failed editor scope")
	}
}

func TestEditorMarksDirtyOnSuccess(t *testing.T) {
	subs := &Subtitles{Scenes: []*Scene{{Number: 1, Batches: []*Batch{newTestBatch(1, 1, 1, 2)}}}}

	dirty := false
	editor := NewEditor(subs, func(success bool) {
		if success {
			dirty = true
		}
	})

	err := editor.ReplaceBatch(1, 1, newTestBatch(1, 1, 1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dirty {
		t.Fatal("dirty callback must fire on success")
	}
}

func TestBatchAllTranslated(t *testing.T) {
	b := newTestBatch(1, 1, 1, 2)
	if b.AllTranslated() {
		t.Fatal("batch with no translations must not be AllTranslated")
	}
	b.Originals[0].Translation = "x"
	if b.AllTranslated() {
		t.Fatal("partially translated batch must not be AllTranslated")
	}
	b.Originals[1].Translation = "y"
	if !b.AllTranslated() {
		t.Fatal("fully translated batch must be AllTranslated")
	}
}

func TestSettingsGetStringList(t *testing.T) {
	s := Settings{
		"names":    []any{"Alice", "Bob"},
		"typed":    []string{"a", "b"},
		"notalist": "nope",
	}
	if got := s.GetStringList("names"); len(got) != 2 || got[0] != "Alice" {
		t.Fatalf("GetStringList(names) = %v", got)
	}
	if got := s.GetStringList("typed"); len(got) != 2 {
		t.Fatalf("GetStringList(typed) = %v", got)
	}
	if got := s.GetStringList("notalist"); got != nil {
		t.Fatalf("GetStringList(notalist) = %v, want nil", got)
	}
}
