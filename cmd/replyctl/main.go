package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"replypilot/internal/domain"
)

var businessFile string

var rootCmd = &cobra.Command{
	Use:   "replyctl",
	Short: "Inspect reply templates and prompts for a business config",
	Long: `replyctl works offline against a business config YAML file.

  replyctl preview --business biz.yaml --template tpl.txt
  replyctl prompt  --business biz.yaml --rating 1 --reviewer Ann --text "Cold food"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&businessFile, "business", "", "business config YAML file (required)")
	_ = rootCmd.MarkPersistentFlagRequired("business")
	rootCmd.AddCommand(previewCmd, promptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadBusiness reads a BusinessConfig YAML document and fills defaults.
func loadBusiness(path string) (domain.BusinessConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.BusinessConfig{}, err
	}
	var b domain.BusinessConfig
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return domain.BusinessConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if b.Tone != "" && !b.Tone.Valid() {
		log.Warn().Str("tone", string(b.Tone)).Msg("unknown tone, the friendly label will be used")
	}
	if b.LanguageMode != "" && !b.LanguageMode.Valid() {
		log.Warn().Str("language_mode", string(b.LanguageMode)).Msg("unknown language mode")
	}
	return b.WithDefaults(), nil
}

// readSource reads a file, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	return string(b), err
}
