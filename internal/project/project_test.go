package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mgpai22/subtrans/internal/formats"
	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/llm"
	"github.com/mgpai22/subtrans/internal/scheduler"
	"github.com/mgpai22/subtrans/internal/subtitle"
	"github.com/mgpai22/subtrans/internal/translator"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,000
Hello there.

2
00:00:03,000 --> 00:00:04,000
How are you?

3
00:00:05,000 --> 00:00:06,000
Goodbye now.
`

func writeSampleSRT(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "movie.srt")
	if err := os.WriteFile(path, []byte(sampleSRT), 0o644); err != nil {
		t.Fatalf("writing sample srt: %v", err)
	}
	return path
}

func loopbackFactory() scheduler.ClientFactory {
	return func() (llm.Client, error) { return translator.NewLoopbackClient(), nil }
}

// erroringClient always fails Complete, simulating a fatal provider error
// (bad API key, quota exceeded) the translator cannot retry past.
type erroringClient struct{}

func (erroringClient) Provider() string { return "erroring" }
func (erroringClient) Model() string    { return "erroring-model" }
func (erroringClient) Complete(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{}, errors.New("simulated fatal provider error")
}

func erroringFactory() scheduler.ClientFactory {
	return func() (llm.Client, error) { return erroringClient{}, nil }
}

func TestInitialiseProjectLoadsFreshSourceFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	p := New(nil)
	if err := p.InitialiseProject(src, "", false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}

	subs := p.Subtitles()
	if subs == nil || !subs.HasSubtitles() {
		t.Fatalf("expected subtitles to be loaded")
	}
	if subs.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", subs.LineCount())
	}
	if p.ExistingProject() {
		t.Errorf("fresh load from source should not be an existing project")
	}
}

func TestInitialiseProjectResumesExistingProjectFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	first := New(nil)
	if err := first.InitialiseProject(src, "", false); err != nil {
		t.Fatalf("InitialiseProject (first load): %v", err)
	}
	editor, err := first.GetEditor()
	if err != nil {
		t.Fatalf("GetEditor: %v", err)
	}
	if err := editor.Do(func(subs *subtitle.Subtitles) error {
		subs.Scenes[0].Batches[0].Originals[0].Translation = "Bonjour."
		return nil
	}); err != nil {
		t.Fatalf("editor.Do: %v", err)
	}
	if err := first.SaveProjectFile(""); err != nil {
		t.Fatalf("SaveProjectFile: %v", err)
	}

	projectFile := ProjectFilepath(src)
	if _, err := os.Stat(projectFile); err != nil {
		t.Fatalf("expected project file to exist: %v", err)
	}

	second := New(nil)
	if err := second.InitialiseProject(projectFile, "", false); err != nil {
		t.Fatalf("InitialiseProject (resume): %v", err)
	}
	if !second.ExistingProject() {
		t.Errorf("expected resumed load to report ExistingProject")
	}
	resumed := second.Subtitles()
	if resumed.Scenes[0].Batches[0].Originals[0].Translation != "Bonjour." {
		t.Errorf("expected resumed translation to survive the round trip, got %q",
			resumed.Scenes[0].Batches[0].Originals[0].Translation)
	}

	if _, err := os.Stat(BackupFilepath(projectFile)); err != nil {
		t.Errorf("expected a backup file to be written on resume: %v", err)
	}
}

func TestUpdateProjectSettingsMigratesLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	p := New(nil)
	if err := p.InitialiseProject(src, "", false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}

	err := p.UpdateProjectSettings(subtitle.Settings{
		"synopsis":            "A tale of two cities.",
		"characters":          "Alice, Bob",
		"gpt_prompt":          "translate carefully",
		"gpt_model":           "gpt-4",
		"match_partial_words": true,
	})
	if err != nil {
		t.Fatalf("UpdateProjectSettings: %v", err)
	}

	settings := p.Subtitles().Settings
	if settings.GetString("description") != "A tale of two cities." {
		t.Errorf("expected synopsis to migrate to description, got %q", settings.GetString("description"))
	}
	names := settings.GetStringList("names")
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Errorf("expected characters to migrate into names, got %v", names)
	}
	if settings.GetString("prompt") != "translate carefully" {
		t.Errorf("expected gpt_prompt to migrate to prompt, got %q", settings.GetString("prompt"))
	}
	if settings.GetString("model") != "gpt-4" {
		t.Errorf("expected gpt_model to migrate to model, got %q", settings.GetString("model"))
	}
	if settings.GetString("substitution_mode") != "Partial Words" {
		t.Errorf("expected match_partial_words to migrate to substitution_mode, got %q", settings.GetString("substitution_mode"))
	}
	if _, ok := settings["characters"]; ok {
		t.Errorf("expected characters key to be removed after migration")
	}
}

func TestUpdateProjectSettingsNoopWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	p := New(nil)
	if err := p.InitialiseProject(src, "", false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}
	if err := p.UpdateProjectSettings(subtitle.Settings{"description": "same"}); err != nil {
		t.Fatalf("UpdateProjectSettings (first): %v", err)
	}
	p.needsWriting = false

	if err := p.UpdateProjectSettings(subtitle.Settings{"description": "same"}); err != nil {
		t.Fatalf("UpdateProjectSettings (second): %v", err)
	}
	if p.NeedsWriting() {
		t.Errorf("expected no write to be scheduled when settings are unchanged")
	}
}

func TestEncodeDecodeRoundTripsTimestampsAndStructure(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	p := New(nil)
	if err := p.InitialiseProject(src, "", false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}

	encoded, err := Encode(p.Subtitles())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.LineCount() != p.Subtitles().LineCount() {
		t.Fatalf("expected line count to survive round trip, got %d want %d",
			decoded.LineCount(), p.Subtitles().LineCount())
	}
	original := p.Subtitles().AllLines()
	roundTripped := decoded.AllLines()
	for i := range original {
		if original[i].Start != roundTripped[i].Start || original[i].End != roundTripped[i].End {
			t.Errorf("line %d: timestamps did not survive round trip: got %v-%v want %v-%v",
				i, roundTripped[i].Start, roundTripped[i].End, original[i].Start, original[i].End)
		}
	}
}

func TestGetOutputPathDefaultsLanguageAndExtension(t *testing.T) {
	got := GetOutputPath("/movies/inception.srt", "", "")
	want := filepath.Clean("/movies/inception.translated.srt")
	if got != want {
		t.Errorf("GetOutputPath = %q, want %q", got, want)
	}

	got = GetOutputPath("/movies/inception.srt", "fr", ".ass")
	want = filepath.Clean("/movies/inception.fr.ass")
	if got != want {
		t.Errorf("GetOutputPath = %q, want %q", got, want)
	}

	got = GetOutputPath("/movies/inception.fr.srt", "fr", "")
	want = filepath.Clean("/movies/inception.fr.srt")
	if got != want {
		t.Errorf("GetOutputPath should not double-append language suffix, got %q", got)
	}
}

func TestTranslateSubtitlesEndToEndWritesOutput(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	outPath := filepath.Join(dir, "movie.translated.srt")
	p := New(nil)
	if err := p.InitialiseProject(src, outPath, false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}

	sched, err := p.NewScheduler(loopbackFactory(), instructions.New(nil, nil), scheduler.Options{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := p.TranslateSubtitles(context.Background(), sched); err != nil {
		t.Fatalf("TranslateSubtitles: %v", err)
	}

	if !p.Subtitles().AllTranslated() {
		t.Fatalf("expected every line translated")
	}
	if _, err := os.Stat(p.Subtitles().OutputPath); err != nil {
		t.Errorf("expected translation output file to be written: %v", err)
	}
}

func TestTranslateSubtitlesReturnsErrorOnFatalProviderFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	outPath := filepath.Join(dir, "movie.translated.srt")
	p := New(nil)
	p.SetWriteTranslation(true)
	if err := p.InitialiseProject(src, outPath, false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}

	sched, err := p.NewScheduler(erroringFactory(), instructions.New(nil, nil), scheduler.Options{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	err = p.TranslateSubtitles(context.Background(), sched)
	if err == nil {
		t.Fatalf("expected TranslateSubtitles to return an error when every batch fails")
	}
	if errors.Is(err, scheduler.ErrAborted) {
		t.Fatalf("a fatal provider error is not an abort, got %v", err)
	}
}

func TestSaveOriginalWritesSourceLines(t *testing.T) {
	dir := t.TempDir()
	src := writeSampleSRT(t, dir)

	p := New(nil)
	if err := p.InitialiseProject(src, "", false); err != nil {
		t.Fatalf("InitialiseProject: %v", err)
	}

	outPath := filepath.Join(dir, "movie.original.srt")
	if err := p.SaveOriginal(outPath); err != nil {
		t.Fatalf("SaveOriginal: %v", err)
	}

	handler, err := formats.DefaultRegistry.Get(".srt")
	if err != nil {
		t.Fatalf("Get handler: %v", err)
	}
	data, err := handler.ParseFile(outPath)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(data.Lines) != 3 {
		t.Fatalf("expected 3 lines in saved original, got %d", len(data.Lines))
	}
	if data.Lines[0].Text != "Hello there." {
		t.Errorf("expected untranslated text preserved, got %q", data.Lines[0].Text)
	}
}
