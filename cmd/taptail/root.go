// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every subcommand needs once flags and config are read.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "taptail",
		Short: "Summarize agent progress in plain language",
		Long: `taptail turns an agent's stream of tool calls into short, plain-language
progress updates. Every few tool calls the batch is paraphrased by a chat
model and printed; a final update is printed when the run ends.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is .taptail.yaml)")
	f.String("backend", "openai", "chat backend: openai, azure or gemini")
	f.String("model", "", "model or deployment name")
	f.String("endpoint", "", "API base URL (required for azure)")
	f.String("api-key", "", "API key; azure falls back to DefaultAzureCredential when empty")
	f.Bool("text-tool-calls", false, "convert tool calls written as text (local runtimes)")
	f.Int("threshold", 3, "tool calls per summary")
	f.String("sentinel", "Task finished", "line appended to the final batch")
	f.Bool("ordered", false, "print summaries in dispatch order")
	f.Bool("verbose-filter", false, "also summarize tool results and reasoning")
	f.Bool("fallback", false, "print raw lines when paraphrasing fails")
	f.String("instructions", "", "override the paraphrase instructions")
	f.StringP("format", "o", "text", "output format: text, json or yaml")
	f.Bool("show-lines", false, "print the source lines under each text summary")
	f.String("sink", "", "also append every summary to this JSONL file")
	f.Bool("debug", false, "enable debug logging")
	_ = a.v.BindPFlags(f)

	root.AddCommand(newReplayCmd(a), newRunCmd(a))
	return root
}

func (a *app) initConfig() error {
	// A missing .env is fine.
	_ = godotenv.Load()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		a.v.AddConfigPath(cwd)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".taptail")
	}

	a.v.SetEnvPrefix("TAPTAIL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if a.v.GetBool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
		if used := a.v.ConfigFileUsed(); used != "" {
			slog.Debug("using config file", "path", used)
		}
	}
	return nil
}
