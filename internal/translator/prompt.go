package translator

import (
	"fmt"
	"strings"

	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/subtitle"
)

// maxHistoryEntries bounds the rolling summary history carried in the
// context block to the most recent entries. Entries are not grouped by
// scene: the last ten are kept whichever scenes they came from.
const maxHistoryEntries = 10

// BuildPrompt assembles the user turn for one batch request: the task
// statement, a context block (names, description, rolling history), and
// the batch payload as one stanza per line. When retryNote is non-empty
// it is appended after the task statement as a repair instruction for a
// misalignment retry.
func BuildPrompt(ins *instructions.Instructions, batch *subtitle.Batch, retryNote string) string {
	var sb strings.Builder

	sb.WriteString(ins.Prompt)
	sb.WriteString("\n\n")

	if retryNote != "" {
		sb.WriteString(retryNote)
		sb.WriteString("\n\n")
	}

	if ctx := buildContextBlock(batch); ctx != "" {
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	sb.WriteString(buildBatchPayload(batch))

	return sb.String()
}

func buildContextBlock(batch *subtitle.Batch) string {
	var sb strings.Builder

	if len(batch.Context.Names) > 0 {
		fmt.Fprintf(&sb, "Characters: %s\n", strings.Join(batch.Context.Names, ", "))
	}
	if batch.Context.Description != "" {
		fmt.Fprintf(&sb, "Context: %s\n", batch.Context.Description)
	}
	if len(batch.Context.History) > 0 {
		history := batch.Context.History
		if len(history) > maxHistoryEntries {
			history = history[len(history)-maxHistoryEntries:]
		}
		sb.WriteString("Previous summaries:\n")
		for _, h := range history {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// buildBatchPayload renders one stanza per original line:
//
//	#<line_number>
//	Original>
//	<text>
//	Translation>
func buildBatchPayload(batch *subtitle.Batch) string {
	var sb strings.Builder
	for i, line := range batch.Originals {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "#%d\nOriginal>\n%s\nTranslation>", line.Number, line.Text)
	}
	return sb.String()
}
