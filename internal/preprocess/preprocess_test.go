package preprocess

import (
	"testing"

	"github.com/mgpai22/subtrans/internal/subtitle"
)

func TestApplySubstitutionsWholeWords(t *testing.T) {
	subs := map[string]string{"Jon": "John"}
	got := ApplySubstitutions("Jon and Jonathan went home", subs, ModeWholeWords)
	want := "John and Jonathan went home"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplySubstitutionsPartialWords(t *testing.T) {
	subs := map[string]string{"Jon": "John"}
	got := ApplySubstitutions("Jonathan", subs, ModePartialWords)
	want := "Johnathan"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplySubstitutionsLongestKeyFirst(t *testing.T) {
	subs := map[string]string{
		"Jon":      "John",
		"Jon Snow": "Aegon Targaryen",
	}
	got := ApplySubstitutions("Jon Snow is here", subs, ModeWholeWords)
	want := "Aegon Targaryen is here"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapOverlongInsertsSentinel(t *testing.T) {
	long := "this is a fairly long subtitle line that should wrap somewhere"
	got := WrapOverlong(long, 20)
	if got == long {
		t.Fatal("expected wrapping to change the text")
	}
	if !containsSentinel(got) {
		t.Fatalf("expected <wbr> sentinel in wrapped text: %q", got)
	}
}

func TestWrapOverlongLeavesShortLineAlone(t *testing.T) {
	short := "hi there"
	if got := WrapOverlong(short, 44); got != short {
		t.Fatalf("got %q, want unchanged %q", got, short)
	}
}

func TestLineAppliesSubstitutionsFromSettings(t *testing.T) {
	l := &subtitle.Line{Text: "Jon is tired"}
	settings := subtitle.Settings{
		"substitutions":     map[string]any{"Jon": "John"},
		"substitution_mode": ModeWholeWords,
	}
	Line(l, settings)
	if l.Text != "John is tired" {
		t.Fatalf("got %q", l.Text)
	}
}

func containsSentinel(s string) bool {
	for i := 0; i+5 <= len(s); i++ {
		if s[i:i+5] == wbrSentinel {
			return true
		}
	}
	return false
}
