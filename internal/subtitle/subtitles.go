package subtitle

// Subtitles is the root container of the project tree: exclusively owns
// its scenes, which exclusively own batches, which exclusively own lines.
// All mutation passes through Editor.
type Subtitles struct {
	Scenes     []*Scene          `json:"scenes"`
	Settings   Settings          `json:"settings"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	SourcePath string            `json:"sourcepath,omitempty"`
	OutputPath string            `json:"outputpath,omitempty"`
	Format     string            `json:"format,omitempty"`
}

// NewSubtitles returns an empty Subtitles rooted at sourcepath, with the
// given default settings.
func NewSubtitles(sourcepath string, settings Settings) *Subtitles {
	if settings == nil {
		settings = Settings{}
	}
	return &Subtitles{
		SourcePath: sourcepath,
		Settings:   settings,
		Metadata:   map[string]any{},
	}
}

// LineCount returns the total number of lines across every scene.
func (s *Subtitles) LineCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, scene := range s.Scenes {
		count += scene.LineCount()
	}
	return count
}

// SceneCount returns the number of scenes.
func (s *Subtitles) SceneCount() int {
	if s == nil {
		return 0
	}
	return len(s.Scenes)
}

// AnyTranslated reports whether any line anywhere has a translation.
func (s *Subtitles) AnyTranslated() bool {
	if s == nil {
		return false
	}
	for _, scene := range s.Scenes {
		if scene.AnyTranslated() {
			return true
		}
	}
	return false
}

// AllTranslated reports whether every line in every scene has a
// translation.
func (s *Subtitles) AllTranslated() bool {
	if s == nil || len(s.Scenes) == 0 {
		return false
	}
	for _, scene := range s.Scenes {
		if !scene.AllTranslated() {
			return false
		}
	}
	return true
}

// HasSubtitles reports whether the tree holds at least one scene.
func (s *Subtitles) HasSubtitles() bool {
	return s != nil && len(s.Scenes) > 0
}

// GetScene returns the scene with the given number, or nil.
func (s *Subtitles) GetScene(number int) *Scene {
	for _, scene := range s.Scenes {
		if scene.Number == number {
			return scene
		}
	}
	return nil
}

// AllLines returns every original line across the tree, in scene/batch
// order.
func (s *Subtitles) AllLines() []*Line {
	var lines []*Line
	for _, scene := range s.Scenes {
		for _, batch := range scene.Batches {
			lines = append(lines, batch.Originals...)
		}
	}
	return lines
}
