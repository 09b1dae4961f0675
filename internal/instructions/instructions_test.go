package instructions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFillsDefaults(t *testing.T) {
	ins := New(nil, nil)
	if ins.Instructions != DefaultInstructions {
		t.Fatal("expected default instructions")
	}
	if ins.TaskType != DefaultTaskType {
		t.Fatalf("TaskType = %q, want %q", ins.TaskType, DefaultTaskType)
	}
	if strings.Contains(ins.Prompt, "[") {
		t.Fatalf("unresolved tag left in prompt: %q", ins.Prompt)
	}
}

func TestNewResolvesMovieAndLanguageTags(t *testing.T) {
	settings := map[string]any{
		"movie_name":      "Spirited Away",
		"target_language": "French",
	}
	ins := New(settings, nil)
	if !strings.Contains(ins.Prompt, "for Spirited Away") {
		t.Fatalf("prompt missing movie tag: %q", ins.Prompt)
	}
	if !strings.Contains(ins.Prompt, "to French") {
		t.Fatalf("prompt missing language tag: %q", ins.Prompt)
	}
}

func TestLoadFileLegacyWithMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.txt")
	content := "main line one\nmain line two\n###\nretry line one\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ins, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.Instructions != "main line one\nmain line two" {
		t.Fatalf("Instructions = %q", ins.Instructions)
	}
	if ins.RetryInstructions != "retry line one" {
		t.Fatalf("RetryInstructions = %q", ins.RetryInstructions)
	}
}

func TestLoadFileLegacyWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy_nomarker.txt")
	content := "just some plain instructions\nwith two lines\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ins, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.Instructions != "just some plain instructions\nwith two lines" {
		t.Fatalf("Instructions = %q", ins.Instructions)
	}
	if ins.RetryInstructions != DefaultRetryInstructions {
		t.Fatal("expected default retry instructions when no marker present")
	}
}

func TestLoadFileSectioned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modern.txt")
	content := "### prompt\nTranslate please\n\n### instructions\nBe accurate\n\n### retry_instructions\nTry harder\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ins, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.Prompt != "Translate please" {
		t.Fatalf("Prompt = %q", ins.Prompt)
	}
	if ins.Instructions != "Be accurate" {
		t.Fatalf("Instructions = %q", ins.Instructions)
	}
	if ins.RetryInstructions != "Try harder" {
		t.Fatalf("RetryInstructions = %q", ins.RetryInstructions)
	}
}

func TestLoadFileSectionedMissingRequiredSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	content := "### instructions\nBe accurate\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for missing prompt section")
	}
}
