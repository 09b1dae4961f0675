package instructions

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads an instruction file from disk. Modern files are sectioned
// with `### name` headers (prompt/instructions/retry_instructions/
// target_language/task_type); legacy files are two plain blocks separated
// by a line of three or more '#' characters, or a single block of main
// instructions if no such marker is present at all — resolving the open
// question in spec.md §9.
func LoadFile(path string) (*Instructions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("instruction file not found: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading instruction file: %w", err)
	}

	base := filepath.Base(path)

	if len(lines) == 0 {
		return New(nil, nil), nil
	}

	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "###") {
		return loadLegacy(lines, base), nil
	}

	return loadSectioned(lines, base)
}

func loadLegacy(lines []string, base string) *Instructions {
	main, retry := splitOnHashRule(lines)

	ins := New(nil, nil)
	if main != "" {
		ins.Instructions = main
	}
	if retry != "" {
		ins.RetryInstructions = retry
	}
	ins.InstructionFile = base
	return ins
}

// splitOnHashRule finds a line consisting only of three or more '#'
// characters and splits the remaining lines around it.
func splitOnHashRule(lines []string) (main string, retry string) {
	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= 3 && isAllHash(trimmed) {
			return strings.Join(lines[:idx], "\n"), strings.Join(lines[idx+1:], "\n")
		}
	}
	return strings.Join(lines, "\n"), ""
}

func isAllHash(s string) bool {
	for _, c := range s {
		if c != '#' {
			return false
		}
	}
	return true
}

func loadSectioned(lines []string, base string) (*Instructions, error) {
	sections := map[string][]string{}
	var current string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "###") {
			current = strings.TrimSpace(strings.TrimPrefix(trimmed, "###"))
			sections[current] = nil
			continue
		}
		if current == "" {
			continue
		}
		if strings.TrimSpace(line) != "" || sections[current] != nil {
			sections[current] = append(sections[current], line)
		}
	}

	ins := New(nil, nil)
	if v, ok := sections["prompt"]; ok {
		ins.Prompt = strings.TrimSpace(strings.Join(v, "\n"))
	}
	if v, ok := sections["instructions"]; ok {
		ins.Instructions = strings.TrimSpace(strings.Join(v, "\n"))
	}
	if v, ok := sections["retry_instructions"]; ok {
		if joined := strings.TrimSpace(strings.Join(v, "\n")); joined != "" {
			ins.RetryInstructions = joined
		}
	}
	if v, ok := sections["target_language"]; ok {
		ins.TargetLanguage = strings.Join(v, "")
	}
	if v, ok := sections["task_type"]; ok {
		if joined := strings.Join(v, ""); joined != "" {
			ins.TaskType = joined
		}
	}
	ins.InstructionFile = base

	_, hasPrompt := sections["prompt"]
	_, hasInstructions := sections["instructions"]
	if !hasPrompt || !hasInstructions || ins.Prompt == "" || ins.Instructions == "" {
		return nil, fmt.Errorf("invalid instruction file: missing prompt or instructions section")
	}

	return ins, nil
}

// Save writes instructions back out in the modern sectioned format.
func Save(ins *Instructions, path string) error {
	if !strings.HasSuffix(path, ".txt") {
		path += ".txt"
	}

	var sb strings.Builder
	sb.WriteString("### prompt\n")
	sb.WriteString(nonEmpty(ins.Prompt, defaultUserPrompt))
	if ins.TaskType != "" && ins.TaskType != DefaultTaskType {
		sb.WriteString("\n\n### task_type\n")
		sb.WriteString(ins.TaskType)
	}
	sb.WriteString("\n\n### instructions\n")
	sb.WriteString(nonEmpty(ins.Instructions, DefaultInstructions))
	sb.WriteString("\n\n### retry_instructions\n")
	sb.WriteString(nonEmpty(ins.RetryInstructions, DefaultRetryInstructions))
	sb.WriteString("\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write instruction file: %w", err)
	}
	ins.InstructionFile = filepath.Base(path)
	return nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
