package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtrans/internal/instructions"
	"github.com/mgpai22/subtrans/internal/llm"
	"github.com/mgpai22/subtrans/internal/project"
	"github.com/mgpai22/subtrans/internal/scheduler"
	"github.com/mgpai22/subtrans/internal/subtitle"
)

func runTranslate(cmd *cobra.Command, args []string, preset ProviderPreset) error {
	ctx := context.Background()
	input := args[0]

	apiKey, _ := cmd.Flags().GetString("apikey")
	model, _ := cmd.Flags().GetString("model")
	output, _ := cmd.Flags().GetString("output")
	targetLanguage, _ := cmd.Flags().GetString("target_language")
	projectMode, _ := cmd.Flags().GetString("project")
	scenesFlag, _ := cmd.Flags().GetString("scenes")
	fast, _ := cmd.Flags().GetBool("fast")

	providerName := preset.Name
	if providerName == "" {
		providerName, _ = cmd.Flags().GetString("provider")
	}
	if providerName == "" {
		return fmt.Errorf("a provider is required: pass --provider or use a provider-specific binary")
	}
	resolved, ok := lookupPreset(providerName)
	if !ok {
		return fmt.Errorf("unsupported provider %q", providerName)
	}

	if apiKey == "" {
		apiKey = os.Getenv(resolved.apiKeyEnvVar())
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required: use --apikey or set %s", resolved.apiKeyEnvVar())
	}
	if model == "" {
		model = os.Getenv(resolved.modelEnvVar())
	}

	scenes, err := parseScenes(scenesFlag)
	if err != nil {
		return err
	}

	p := project.New(nil)
	reloadSubtitles := false
	switch strings.ToLower(projectMode) {
	case "":
		// use InitialiseProject's own inference
	case "read":
		p.SetUseProjectFile(true)
		p.SetWriteTranslation(false)
	case "write":
		p.SetUseProjectFile(false)
		p.SetWriteTranslation(true)
	case "reload":
		p.SetUseProjectFile(true)
		reloadSubtitles = true
	default:
		return fmt.Errorf(`invalid --project value %q: use "read", "write", or "reload"`, projectMode)
	}

	if err := p.InitialiseProject(input, output, reloadSubtitles); err != nil {
		return fmt.Errorf("failed to initialise project: %w", err)
	}

	settings := subtitle.Settings{"provider": resolved.Name}
	if model != "" {
		settings["model"] = model
	}
	if targetLanguage != "" {
		settings["target_language"] = targetLanguage
	}
	if err := p.UpdateProjectSettings(settings); err != nil {
		return fmt.Errorf("failed to update project settings: %w", err)
	}

	if output == "" {
		if err := p.UpdateOutputPath("", ""); err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
	}

	ins, err := buildInstructions(p.Subtitles().Settings)
	if err != nil {
		return fmt.Errorf("failed to load instructions: %w", err)
	}

	logger.Infow("Starting subtitle translation",
		"input", input,
		"output", p.Subtitles().OutputPath,
		"provider", resolved.Name,
		"model", model,
		"target_language", targetLanguage,
		"fast", fast,
		"scenes", scenes,
	)

	clients := func() (llm.Client, error) {
		return llm.New(ctx, resolved.Name, apiKey, model)
	}

	sched, err := p.NewScheduler(clients, ins, scheduler.Options{
		Parallel: fast,
		Scenes:   scenes,
	})
	if err != nil {
		return fmt.Errorf("failed to set up scheduler: %w", err)
	}

	translateErr := p.TranslateSubtitles(ctx, sched)

	if p.UseProjectFile() {
		logger.Infow("Writing project file")
		if err := p.SaveProjectFile(""); err != nil {
			return fmt.Errorf("failed to write project file: %w", err)
		}
	}

	if translateErr != nil && translateErr != scheduler.ErrAborted {
		return fmt.Errorf("translation failed: %w", translateErr)
	}
	if translateErr == scheduler.ErrAborted {
		return translateErr
	}

	subs := p.Subtitles()
	fmt.Printf("Subtitles translated successfully: %s\n", subs.OutputPath)
	fmt.Printf("  Lines: %d\n", subs.LineCount())
	fmt.Printf("  Scenes: %d\n", subs.SceneCount())
	if targetLanguage != "" {
		fmt.Printf("  Target language: %s\n", targetLanguage)
	}

	return nil
}

// buildInstructions loads instructions from settings["instruction_file"]
// if set, otherwise renders the package defaults against settings.
func buildInstructions(settings subtitle.Settings) (*instructions.Instructions, error) {
	if file := settings.GetString("instruction_file"); file != "" {
		return instructions.LoadFile(file)
	}
	return instructions.New(settings, nil), nil
}

// parseScenes parses a comma-separated list of scene numbers, e.g.
// "2,5,6". An empty string means every pending scene.
func parseScenes(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	scenes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid --scenes value %q: %w", s, err)
		}
		scenes = append(scenes, n)
	}
	return scenes, nil
}
