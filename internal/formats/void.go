package formats

import "fmt"

// VoidHandler is the placeholder handler installed before a real
// extension is known (e.g. immediately after project decode, before
// outputpath's extension has been inspected). It refuses every
// operation, per original_source/PySubtitle/Formats/VoidFileHandler.py.
type VoidHandler struct{}

func NewVoidHandler(string) Handler { return &VoidHandler{} }

func (*VoidHandler) Extension() string { return "" }

func (*VoidHandler) ParseFile(string) (SubtitleData, error) {
	return SubtitleData{}, fmt.Errorf("void handler cannot parse files")
}

func (*VoidHandler) ParseString(string) (SubtitleData, error) {
	return SubtitleData{}, fmt.Errorf("void handler cannot parse subtitle data")
}

func (*VoidHandler) Compose(SubtitleData) (string, error) {
	return "", fmt.Errorf("void handler cannot compose subtitle data")
}
