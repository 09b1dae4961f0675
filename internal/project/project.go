// Package project implements the project lifecycle: loading a subtitle
// file or an existing `.subtrans` project, tracking whether anything
// needs to be written back to disk, and driving a translation run
// through internal/scheduler. Grounded line-for-line on
// original_source/PySubtrans/SubtitleProject.py.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mgpai22/subtrans/internal/batcher"
	"github.com/mgpai22/subtrans/internal/events"
	"github.com/mgpai22/subtrans/internal/formats"
	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/preprocess"
	"github.com/mgpai22/subtrans/internal/scheduler"
	"github.com/mgpai22/subtrans/internal/subtitle"
)

// Project holds the in-memory subtitle tree plus the bookkeeping needed
// to decide what to write back to disk and where.
type Project struct {
	mu sync.Mutex

	subtitles *subtitle.Subtitles
	editor    *subtitle.Editor
	registry  *formats.Registry
	handler   formats.Handler // void until a real extension is known

	projectFile      string
	existingProject  bool
	needsWriting     bool
	useProjectFile   bool
	writeTranslation bool
	backedUp         bool

	Events *events.Bus
}

// New returns an empty, unloaded project. Call InitialiseProject or
// LoadSubtitleFile before using it.
func New(registry *formats.Registry) *Project {
	if registry == nil {
		registry = formats.DefaultRegistry
	}
	return &Project{
		registry:         registry,
		handler:          formats.NewVoidHandler(""),
		writeTranslation: true,
		Events:           events.New(),
	}
}

// Subtitles returns the loaded tree, or nil if nothing has been loaded.
func (p *Project) Subtitles() *subtitle.Subtitles {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subtitles
}

// NeedsWriting reports whether anything would be written by SaveProject.
func (p *Project) NeedsWriting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.needsWriting
}

// ExistingProject reports whether InitialiseProject resumed an existing
// project file with scenes already in it, as opposed to starting fresh
// from a source subtitle file.
func (p *Project) ExistingProject() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.existingProject
}

// UseProjectFile reports whether this project reads and writes a
// `.subtrans` project file alongside the translation output.
func (p *Project) UseProjectFile() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.useProjectFile
}

// SetUseProjectFile forces project-file usage on or off ahead of
// InitialiseProject, independent of whether the loaded path happens to
// equal the derived project file path. Used by the CLI's
// `--project read/write` modes.
func (p *Project) SetUseProjectFile(use bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.useProjectFile = use
}

// SetWriteTranslation controls whether TranslateSubtitles/SaveProject
// write the translated subtitle file, independent of the project file.
// Used by the CLI's `--project read/write` modes.
func (p *Project) SetWriteTranslation(write bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeTranslation = write
}

// ProjectFilepath returns filepath with its extension replaced by
// ".subtrans", per spec.md §6.
func ProjectFilepath(filepath_ string) string {
	ext := filepath.Ext(filepath_)
	if strings.EqualFold(ext, ".subtrans") {
		return filepath.Clean(filepath_)
	}
	base := strings.TrimSuffix(filepath_, ext)
	return filepath.Clean(base + ".subtrans")
}

// BackupFilepath returns the `.subtrans-backup` path for a project file.
func BackupFilepath(projectFile string) string {
	return ProjectFilepath(projectFile) + "-backup"
}

// InitialiseProject either reloads an existing project file or loads a
// fresh subtitle source file, selecting between the two the way
// SubtitleProject.InitialiseProject does. outputpath may be empty (it is
// then derived from the source path and target language);
// reloadSubtitles forces re-reading the source file even if a project
// file exists.
func (p *Project) InitialiseProject(path, outputpath string, reloadSubtitles bool) error {
	path = filepath.Clean(path)
	sourcePath := path
	p.projectFile = ProjectFilepath(path)

	_, statErr := os.Stat(p.projectFile)
	projectFileExists := statErr == nil

	if path == p.projectFile {
		p.useProjectFile = true
	}

	readProject := p.useProjectFile && projectFileExists
	loadSubtitles := reloadSubtitles || !readProject

	if !readProject && !loadSubtitles {
		return fmt.Errorf("no project or subtitles to load")
	}

	if readProject {
		if err := p.ReadProjectFile(p.projectFile); err != nil {
			return err
		}
		targetLanguage := p.subtitles.Settings.GetString("target_language")

		if p.subtitles != nil {
			sourceFromProject := p.subtitles.SourcePath
			if sourceFromProject != "" {
				sourcePath = sourceFromProject
			}
			if outputpath == "" {
				outputpath = GetOutputPath(p.projectFile, targetLanguage, p.subtitles.Format)
			}

			if len(p.subtitles.Scenes) > 0 {
				p.existingProject = true
				p.needsWriting = false
				loadSubtitles = reloadSubtitles
			} else {
				loadSubtitles = true
			}
		}
	}

	if loadSubtitles {
		if err := p.LoadSubtitleFile(sourcePath); err != nil {
			return fmt.Errorf("failed to load subtitle file %s: %w", path, err)
		}
	}

	if p.subtitles == nil || !p.subtitles.HasSubtitles() {
		return fmt.Errorf("no subtitles to translate in %s", path)
	}

	if outputpath != "" {
		p.subtitles.OutputPath = outputpath
		p.subtitles.Format = extensionOf(outputpath)
		p.selectHandler(p.subtitles.Format)
		p.needsWriting = p.useProjectFile
	}

	return nil
}

// LoadSubtitleFile parses sourcepath with the registered handler for its
// extension, segments the result into scenes and batches, and replaces
// the project's tree. Settings carried by a previously loaded project
// (if any) are preserved.
func (p *Project) LoadSubtitleFile(sourcepath string) error {
	ext := extensionOf(sourcepath)
	handler, err := p.registry.Get(ext)
	if err != nil {
		return err
	}

	data, err := handler.ParseFile(sourcepath)
	if err != nil {
		return err
	}

	settings := subtitle.Settings{}
	if p.subtitles != nil {
		settings = p.subtitles.Settings.Clone()
	}

	subs := subtitle.NewSubtitles(sourcepath, settings)
	subs.Metadata = data.Metadata
	subs.Format = ext

	lines := make([]*subtitle.Line, 0, len(data.Lines))
	for _, ld := range data.Lines {
		line := &subtitle.Line{Number: ld.Number, Start: ld.Start, End: ld.End, Text: ld.Text, Metadata: ld.Metadata}
		preprocess.Line(line, settings)
		lines = append(lines, line)
	}

	subs.Scenes = batcher.Segment(lines, batcher.DefaultOptions())
	subtitle.Sanitise(subs)

	p.mu.Lock()
	p.subtitles = subs
	p.editor = subtitle.NewEditor(subs, p.markDirty)
	p.handler = handler
	p.mu.Unlock()

	return nil
}

// markDirty is the Editor's onComplete callback: it marks the project
// as needing to be written whenever a scoped edit succeeds.
func (p *Project) markDirty(success bool) {
	if !success {
		return
	}
	p.mu.Lock()
	p.needsWriting = true
	p.mu.Unlock()
}

// GetEditor returns the Editor over the loaded tree. It returns an error
// if called before a subtitle file or project has been loaded, mirroring
// SubtitleProject.GetEditor's "cannot edit project without subtitles".
func (p *Project) GetEditor() (*subtitle.Editor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.editor == nil {
		return nil, fmt.Errorf("cannot edit project without subtitles")
	}
	return p.editor, nil
}

// UpdateOutputPath sets or regenerates the output path, inferring the
// format extension from path (or the current subtitles' format) if none
// is given explicitly.
func (p *Project) UpdateOutputPath(path, extension string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subtitles == nil {
		return fmt.Errorf("no subtitles loaded")
	}
	if path == "" {
		path = p.subtitles.SourcePath
	}
	if extension == "" {
		extension = p.subtitles.Format
	}
	if extension == "" {
		if path != "" {
			extension = extensionOf(path)
		}
		if extension == "" {
			extension = ".srt"
		}
	}
	if strings.EqualFold(extension, ".subtrans") {
		return fmt.Errorf("cannot use .subtrans as output format")
	}

	target := p.subtitles.Settings.GetString("target_language")
	p.subtitles.OutputPath = GetOutputPath(path, target, extension)
	p.subtitles.Format = extension
	p.selectHandlerLocked(extension)
	return nil
}

// selectHandler resolves and installs the format handler for ext,
// falling back to the void handler if ext is unknown.
func (p *Project) selectHandler(ext string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selectHandlerLocked(ext)
}

func (p *Project) selectHandlerLocked(ext string) {
	handler, err := p.registry.Get(ext)
	if err != nil {
		p.handler = formats.NewVoidHandler("")
		return
	}
	p.handler = handler
}

// UpdateProjectSettings merges settings into the project's settings,
// after legacy-key rewrites and allow-list filtering, and only marks the
// project dirty if something actually changed, per
// SubtitleProject.UpdateProjectSettings.
func (p *Project) UpdateProjectSettings(settings subtitle.Settings) error {
	p.mu.Lock()
	if p.subtitles == nil {
		p.mu.Unlock()
		return nil
	}
	editor := p.editor
	p.mu.Unlock()

	settings = settings.Clone()
	updateCompatibility(settings)

	filtered := subtitle.Settings{}
	for k, v := range settings {
		if subtitle.AllowedSettingsKeys[k] {
			filtered[k] = v
		}
	}
	if v, ok := filtered["names"]; ok {
		filtered["names"] = parseNames(v)
	}

	p.mu.Lock()
	current := p.subtitles.Settings
	changed := false
	for k, v := range filtered {
		existing, existed := current[k]
		if !existed || !subtitle.SettingsEqual(existing, v) {
			changed = true
			break
		}
	}
	hasScenes := len(p.subtitles.Scenes) > 0
	p.mu.Unlock()

	if !changed {
		return nil
	}

	if err := editor.UpdateSettings(filtered); err != nil {
		return err
	}

	p.mu.Lock()
	p.needsWriting = p.useProjectFile && hasScenes
	p.mu.Unlock()
	return nil
}

// updateCompatibility rewrites obsolete setting keys in place, per
// SubtitleProject._update_compatibility.
func updateCompatibility(settings subtitle.Settings) {
	if settings.GetString("description") == "" {
		if synopsis := settings.GetString("synopsis"); synopsis != "" {
			settings["description"] = synopsis
		}
	}

	if characters, ok := settings["characters"]; ok {
		names := settings.GetStringList("names")
		names = append(names, toStringList(characters)...)
		settings["names"] = names
		delete(settings, "characters")
	}

	if prompt := settings.GetString("gpt_prompt"); prompt != "" {
		settings["prompt"] = prompt
		delete(settings, "gpt_prompt")
	}

	if model := settings.GetString("gpt_model"); model != "" {
		settings["model"] = model
		delete(settings, "gpt_model")
	}

	if settings.GetString("substitution_mode") == "" {
		if settings.GetBool("match_partial_words") {
			settings["substitution_mode"] = preprocess.ModePartialWords
		} else {
			settings["substitution_mode"] = "Auto"
		}
	}
}

func toStringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return splitNames(list)
	default:
		return nil
	}
}

// parseNames normalises a names setting (a comma-separated string, or a
// list) into a clean []string, per ParseNames in
// PySubtrans/Helpers/Parse.py.
func parseNames(v any) []string {
	names := toStringList(v)
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SaveTranslation composes the tree's current translations with the
// selected format handler and writes them to outputpath (or the tree's
// own OutputPath if outputpath is empty).
func (p *Project) SaveTranslation(outputpath string) error {
	p.mu.Lock()
	subs := p.subtitles
	handler := p.handler
	if outputpath == "" {
		outputpath = subs.OutputPath
	}
	p.mu.Unlock()

	if subs == nil {
		return fmt.Errorf("no subtitles to save")
	}
	if outputpath == "" {
		return fmt.Errorf("no output path set")
	}

	data := toSubtitleData(subs, true)
	composed, err := handler.Compose(data)
	if err != nil {
		return fmt.Errorf("failed to compose translation: %w", err)
	}
	if err := os.WriteFile(outputpath, []byte(composed), 0o644); err != nil {
		return fmt.Errorf("failed to write translation: %w", err)
	}
	return nil
}

// SaveOriginal writes the untranslated source lines to outputpath.
func (p *Project) SaveOriginal(outputpath string) error {
	p.mu.Lock()
	subs := p.subtitles
	handler := p.handler
	if outputpath == "" {
		outputpath = GetOutputPath(subs.SourcePath, "", subs.Format)
	}
	p.mu.Unlock()

	if subs == nil {
		return fmt.Errorf("no subtitles to save")
	}

	data := toSubtitleData(subs, false)
	composed, err := handler.Compose(data)
	if err != nil {
		return fmt.Errorf("failed to compose original: %w", err)
	}
	return os.WriteFile(outputpath, []byte(composed), 0o644)
}

// toSubtitleData flattens the scene/batch tree back into the ordered
// line sequence a format handler composes from, using the translation
// when preferTranslation is set and one exists.
func toSubtitleData(subs *subtitle.Subtitles, preferTranslation bool) formats.SubtitleData {
	data := formats.SubtitleData{Metadata: subs.Metadata}
	for _, line := range subs.AllLines() {
		text := line.Text
		if preferTranslation && line.Translated() {
			text = line.Translation
		}
		data.Lines = append(data.Lines, formats.LineData{
			Number:   line.Number,
			Start:    line.Start,
			End:      line.End,
			Text:     text,
			Metadata: line.Metadata,
		})
	}
	return data
}

// SaveProject writes the project file and/or the translation output
// file, whichever this.needsWriting requires.
func (p *Project) SaveProject() error {
	p.mu.Lock()
	needsWriting := p.needsWriting
	useProjectFile := p.useProjectFile
	writeTranslation := p.writeTranslation
	p.mu.Unlock()

	if !needsWriting {
		return nil
	}

	if useProjectFile {
		if err := p.UpdateProjectFile(); err != nil {
			return err
		}
	}
	if writeTranslation && p.anyTranslated() {
		if err := p.SaveTranslation(""); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.needsWriting = false
	p.mu.Unlock()
	return nil
}

func (p *Project) anyTranslated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subtitles.AnyTranslated()
}

// UpdateProjectFile writes the `.subtrans` project file if the tree has
// scenes worth persisting.
func (p *Project) UpdateProjectFile() error {
	p.mu.Lock()
	needsWriting := p.needsWriting
	hasScenes := p.subtitles != nil && len(p.subtitles.Scenes) > 0
	p.mu.Unlock()

	if needsWriting && hasScenes {
		return p.SaveProjectFile("")
	}
	return nil
}

// SaveProjectFile writes the tree to projectFile (or this project's own
// project file path, if empty).
func (p *Project) SaveProjectFile(projectFile string) error {
	p.mu.Lock()
	subs := p.subtitles
	hasScenes := subs != nil && len(subs.Scenes) > 0
	if projectFile == "" {
		projectFile = p.projectFile
	} else if p.projectFile == "" {
		p.projectFile = ProjectFilepath(projectFile)
	}
	p.mu.Unlock()

	if subs == nil {
		return fmt.Errorf("can't write project file, no subtitles")
	}
	if !hasScenes {
		return fmt.Errorf("can't write project file, no scenes")
	}
	if projectFile == "" {
		return fmt.Errorf("no file path provided")
	}

	if err := p.writeProjectToFile(projectFile); err != nil {
		return err
	}

	p.mu.Lock()
	p.needsWriting = false
	p.mu.Unlock()
	return nil
}

func (p *Project) writeProjectToFile(path string) error {
	p.mu.Lock()
	subs := p.subtitles
	p.mu.Unlock()

	encoded, err := Encode(subs)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// ReadProjectFile loads scenes, subtitles and settings from path,
// resetting the handler to the void placeholder until
// UpdateOutputPath/LoadSubtitleFile next selects a real one, and running
// Sanitise() to absorb any drift. It also triggers the once-per-load
// backup write, per spec.md §4.7.
func (p *Project) ReadProjectFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("project file %s not found: %w", path, err)
	}

	subs, err := Decode(data)
	if err != nil {
		return fmt.Errorf("error decoding project file: %w", err)
	}

	p.mu.Lock()
	p.subtitles = subs
	p.editor = subtitle.NewEditor(subs, p.markDirty)
	p.handler = formats.NewVoidHandler("")
	p.projectFile = path
	backedUp := p.backedUp
	p.mu.Unlock()

	if !backedUp {
		if err := p.SaveBackupFile(); err != nil {
			return err
		}
		p.mu.Lock()
		p.backedUp = true
		p.mu.Unlock()
	}

	return nil
}

// TranslateSubtitles drives the loaded tree through sched, forwarding
// batch/scene events into Events and marking the project dirty as each
// batch completes, then saves the translation unless the run was
// aborted, mirroring SubtitleProject.TranslateSubtitles.
func (p *Project) TranslateSubtitles(ctx context.Context, sched *scheduler.Scheduler) error {
	if p.subtitles == nil {
		return fmt.Errorf("no subtitles to translate")
	}
	if sched == nil {
		return fmt.Errorf("no scheduler supplied")
	}

	if err := p.UpdateProjectFile(); err != nil {
		return err
	}

	runErr := sched.Run(ctx)

	saveTranslation := p.writeTranslation && runErr != scheduler.ErrAborted
	if runErr != nil && runErr != scheduler.ErrAborted {
		if saveTranslation && p.anyTranslated() {
			_ = p.SaveTranslation("")
		}
		return fmt.Errorf("failed to translate subtitles: %w", runErr)
	}
	if runErr == scheduler.ErrAborted {
		return runErr
	}
	if saveTranslation {
		return p.SaveTranslation("")
	}
	return nil
}

// NewScheduler builds a Scheduler wired to this project's editor and
// event bus, forwarding the given client factory and instructions.
func (p *Project) NewScheduler(clients scheduler.ClientFactory, ins *instructions.Instructions, opts scheduler.Options) (*scheduler.Scheduler, error) {
	editor, err := p.GetEditor()
	if err != nil {
		return nil, err
	}
	if opts.Description == "" {
		opts.Description = p.subtitles.Settings.GetString("description")
	}
	if opts.InitialNames == nil {
		opts.InitialNames = p.subtitles.Settings.GetStringList("names")
	}
	return scheduler.NewScheduler(editor, clients, ins, p.Events, opts)
}

// GetOutputPath computes "basename.language.extension" from path, per
// PySubtitle.Helpers.GetOutputPath: language defaults to "translated"
// and the extension defaults to path's own, or ".srt" if path has none.
func GetOutputPath(path, language, extension string) string {
	if path == "" {
		return ""
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)

	target := extension
	if target == "" {
		target = ext
	}
	if target == "" {
		target = ".srt"
	}
	if !strings.HasPrefix(target, ".") {
		target = "." + target
	}

	if language == "" {
		language = "translated"
	}
	suffix := "." + language
	if !strings.HasSuffix(base, suffix) {
		base += suffix
	}

	return filepath.Clean(filepath.Join(dir, base+target))
}

func extensionOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
