package subtitle

// BatchContext carries the cross-batch context that was fed to the model
// for a given attempt: the names list, a description, and a rolling history
// of previous-batch summaries.
type BatchContext struct {
	Names       []string `json:"names,omitempty"`
	Description string   `json:"description,omitempty"`
	History     []string `json:"history,omitempty"`
}

// Batch is an ordered run of lines submitted to the LLM as one request.
type Batch struct {
	SceneNumber  int          `json:"scene"`
	Number       int          `json:"number"`
	Originals    []*Line      `json:"originals"`
	Translated   []*Line      `json:"translated,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	SceneSummary string       `json:"-"`
	Errors       []string     `json:"errors,omitempty"`
	Context      BatchContext `json:"context,omitempty"`
	Translation  string       `json:"translation,omitempty"`
}

// AllTranslated reports whether every original line has a non-empty
// translation.
func (b *Batch) AllTranslated() bool {
	if b == nil || len(b.Originals) == 0 {
		return false
	}
	for _, line := range b.Originals {
		if !line.Translated() {
			return false
		}
	}
	return true
}

// AnyTranslated reports whether at least one original line has a
// translation.
func (b *Batch) AnyTranslated() bool {
	if b == nil {
		return false
	}
	for _, line := range b.Originals {
		if line.Translated() {
			return true
		}
	}
	return false
}

// LineCount returns the number of original lines in the batch.
func (b *Batch) LineCount() int {
	if b == nil {
		return 0
	}
	return len(b.Originals)
}

// FirstLineNumber returns the number of the first original line, or 0 for
// an empty batch.
func (b *Batch) FirstLineNumber() int {
	if b == nil || len(b.Originals) == 0 {
		return 0
	}
	return b.Originals[0].Number
}

// GetOriginal returns the original line with the given number, or nil.
func (b *Batch) GetOriginal(number int) *Line {
	for _, line := range b.Originals {
		if line.Number == number {
			return line
		}
	}
	return nil
}

// AddError appends a diagnostic error recorded against the batch's most
// recent translation attempt.
func (b *Batch) AddError(msg string) {
	b.Errors = append(b.Errors, msg)
}

// ResetErrors clears the errors recorded for the most recent attempt,
// called at the start of each new request in the retry cycle.
func (b *Batch) ResetErrors() {
	b.Errors = nil
}
