package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/config"
	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/gemini"
	"github.com/room4-2/dinedialog/nlu"
)

const quitCommand = "quit"

type chatOptions struct {
	formal    bool
	upper     bool
	delay     time.Duration
	serverURL string
	source    string
	useGemini bool
	noIntro   bool
}

func newRootCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the restaurant recommendation dialog in the terminal",
		Long: `chat runs a restaurant recommendation conversation on stdin/stdout.
By default the dialog runs in-process against the configured catalog; with
--server it talks to a running dinedialog server over its websocket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if !opts.noIntro {
				fmt.Fprintln(cmd.OutOrStdout(), introStyle.Render(introText))
			}
			if opts.serverURL != "" {
				return runRemote(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return runLocal(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.formal, "formal", false, "use the formal register")
	f.BoolVar(&opts.upper, "upper", false, "print system utterances in uppercase")
	f.DurationVar(&opts.delay, "delay", 0, "pause before each system utterance")
	f.StringVar(&opts.serverURL, "server", "", "websocket URL of a running server, e.g. ws://localhost:8080/ws")
	f.StringVar(&opts.source, "catalog", "", "catalog source (CSV path, postgres:// or sqlite:// URL); defaults to CATALOG_SOURCE")
	f.BoolVar(&opts.useGemini, "gemini", false, "classify with Gemini when GEMINI_API_KEY is set")
	f.BoolVar(&opts.noIntro, "no-intro", false, "skip the instructions")
	return cmd
}

func runLocal(ctx context.Context, opts *chatOptions, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	source := cfg.CatalogSource
	if opts.source != "" {
		source = opts.source
	}
	cat, err := catalog.Open(ctx, source, cfg.CatalogTable)
	if err != nil {
		return err
	}

	var classifier dialog.Classifier
	keyword, err := nlu.NewCatalogClassifier(cat, cfg.ClassifierRules)
	if err != nil {
		return err
	}
	classifier = keyword
	if opts.useGemini && cfg.GeminiAPIKey != "" {
		g, err := gemini.NewClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, keyword, zap.NewNop())
		if err != nil {
			return err
		}
		classifier = g
	}

	s := dialog.NewSession(cat, classifier, nlu.NewCatalogExtractor(cat), dialog.Options{
		Formal:    opts.formal,
		Uppercase: opts.upper,
	})
	return converse(ctx, s, opts.delay, in, out)
}

// converse feeds lines from in to the session until it completes, the input
// ends or the user types quit.
func converse(ctx context.Context, s *dialog.Session, delay time.Duration, in io.Reader, out io.Writer) error {
	say(ctx, out, s.Prompt(), delay)

	lines := bufio.NewScanner(in)
	for !s.IsComplete() {
		fmt.Fprint(out, userStyle.Render("> "))
		if !lines.Scan() {
			fmt.Fprintln(out)
			return lines.Err()
		}
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		if strings.EqualFold(text, quitCommand) {
			return nil
		}

		turn := s.Submit(ctx, text)
		if turn.ClassifyErr != nil {
			fmt.Fprintln(out, errorStyle.Render("classifier unavailable: "+turn.ClassifyErr.Error()))
		}
		say(ctx, out, turn.Prompt, delay)
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	return nil
}

func say(ctx context.Context, out io.Writer, text string, delay time.Duration) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	fmt.Fprintln(out, systemStyle.Render(text))
}
