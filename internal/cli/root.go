package cli

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtrans/internal/logx"
)

var logger *zap.SugaredLogger

func newRootCmd(preset ProviderPreset) *cobra.Command {
	use := "subtrans [input]"
	short := "Translate subtitle files using an LLM"
	if preset.Name != "" {
		use = preset.Name + "-subtrans [input]"
		short = "Translate subtitle files using " + preset.Name
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: `Translate an SRT, WebVTT or SSA/ASS subtitle file using an LLM,
one batch of lines at a time. Progress is checkpointed to a ".subtrans"
project file so an interrupted run can be resumed.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			l, err := logx.New(debug)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, preset)
		},
	}

	cmd.Flags().StringP("apikey", "k", "", "API key (or set <PROVIDER>_API_KEY)")
	cmd.Flags().StringP("model", "m", "", "Model to use for translation (or set <PROVIDER>_MODEL)")
	cmd.Flags().StringP("output", "o", "", "Output subtitle file path")
	cmd.Flags().StringP("target_language", "l", "", "Target language")
	cmd.Flags().String("project", "", `Project file mode: "read" (only maintain the .subtrans project file),
"write" (skip the project file, only write the translated subtitle file), or
"reload" (force re-reading the source subtitles even if a project file exists)`)
	cmd.Flags().String("scenes", "", "Comma-separated scene numbers to (re)translate, e.g. \"2,5,6\" (default: all pending scenes)")
	cmd.Flags().Bool("fast", false, "Translate scenes in parallel instead of one at a time")
	cmd.Flags().Bool("debug", false, "Enable debug logging")

	if preset.Name == "" {
		cmd.Flags().String("provider", "", "Translation provider: openai, anthropic, gemini, mistral, deepseek, or bedrock")
	}

	return cmd
}

// Execute runs the CLI for preset. Pass MultiProviderPreset for the
// --provider-flag binary, or one of the pinned presets (OpenAIPreset,
// AnthropicPreset, ...) for a thin single-provider binary.
func Execute(preset ProviderPreset) error {
	return newRootCmd(preset).Execute()
}
