package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/config"
	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/gemini"
	"github.com/room4-2/dinedialog/nlu"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		useGemini bool
		focus     string
	)
	cmd := &cobra.Command{
		Use:   "classify [utterance...]",
		Short: "Print the dialog act and preferences found in an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cat, err := catalog.Open(ctx, cfg.CatalogSource, cfg.CatalogTable)
			if err != nil {
				return err
			}

			keyword, err := nlu.NewCatalogClassifier(cat, cfg.ClassifierRules)
			if err != nil {
				return err
			}
			var classifier dialog.Classifier = keyword
			if useGemini {
				logger, _ := zap.NewDevelopment()
				classifier, err = gemini.NewClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, nil, logger)
				if err != nil {
					return err
				}
			}
			return classifyOnce(ctx, cmd.OutOrStdout(), classifier, nlu.NewCatalogExtractor(cat), strings.Join(args, " "), dialog.Slot(focus))
		},
	}
	cmd.Flags().BoolVar(&useGemini, "gemini", false, "classify with Gemini (needs GEMINI_API_KEY)")
	cmd.Flags().StringVar(&focus, "focus", "", "slot the system just asked for: food, area or pricerange")
	return cmd
}

func classifyOnce(ctx context.Context, out io.Writer, classifier dialog.Classifier, extractor dialog.Extractor, utterance string, focus dialog.Slot) error {
	act, err := classifier.Classify(ctx, utterance)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	e := extractor.Extract(utterance, focus)
	fmt.Fprintf(out, "act:        %s\n", act)
	fmt.Fprintf(out, "food:       %s\n", orDash(e.Food))
	fmt.Fprintf(out, "area:       %s\n", orDash(e.Area))
	fmt.Fprintf(out, "pricerange: %s\n", orDash(e.Price))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
