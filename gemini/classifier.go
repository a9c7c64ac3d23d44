package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/functions"
	"github.com/room4-2/dinedialog/metrics"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const defaultTimeout = 10 * time.Second

// ErrNoFunctionCall is returned when the model answered without calling the tool.
var ErrNoFunctionCall = errors.New("model returned no function call")

// generator is the part of genai.Models the classifier needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Classifier labels utterances with Gemini using forced function calling. Any
// failure is answered by the fallback classifier instead.
type Classifier struct {
	models   generator
	model    string
	config   *genai.GenerateContentConfig
	fallback dialog.Classifier
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout bounds each GenerateContent call.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Classifier) {
		c.config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt}}}
	}
}

// NewClassifier creates the GenAI client. fallback may be nil, in which case
// failures surface as errors.
func NewClassifier(ctx context.Context, apiKey, model string, fallback dialog.Classifier, logger *zap.Logger, opts ...Option) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClassifier(client.Models, model, fallback, logger, opts...), nil
}

func newClassifier(models generator, model string, fallback dialog.Classifier, logger *zap.Logger, opts ...Option) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{
		models:   models,
		model:    model,
		fallback: fallback,
		timeout:  defaultTimeout,
		logger:   logger.Named("gemini"),
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: DefaultSystemPrompt}}},
			Tools: []*genai.Tool{{
				FunctionDeclarations: []*genai.FunctionDeclaration{functions.GetClassifyDialogActFunctionDeclaration()},
			}},
			ToolConfig: &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingConfigModeAny,
					AllowedFunctionNames: []string{functions.ClassifyDialogActName},
				},
			},
			Temperature: genai.Ptr[float32](0),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name in use.
func (c *Classifier) Model() string { return c.model }

// Classify implements dialog.Classifier.
func (c *Classifier) Classify(ctx context.Context, utterance string) (dialog.Act, error) {
	start := time.Now()
	act, err := c.classify(ctx, utterance)
	if err == nil {
		metrics.RecordClassification("gemini", "success", time.Since(start).Seconds())
		return act, nil
	}
	metrics.RecordClassification("gemini", "error", time.Since(start).Seconds())

	if c.fallback == nil {
		return dialog.ActNull, err
	}
	metrics.RecordFallback(fallbackReason(err))
	c.logger.Warn("classification failed, using fallback", zap.String("model", c.model), zap.Error(err))
	return c.fallback.Classify(ctx, utterance)
}

func (c *Classifier) classify(ctx context.Context, utterance string) (dialog.Act, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(utterance), c.config)
	if err != nil {
		return dialog.ActNull, fmt.Errorf("generate content: %w", err)
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return dialog.ActNull, ErrNoFunctionCall
	}
	act, err := functions.ParseClassifyDialogActCall(calls[0])
	if err != nil {
		return dialog.ActNull, &labelError{err: err}
	}
	c.logger.Debug("classified", zap.String("act", string(act)))
	return act, nil
}

// labelError marks a function call whose arguments could not be read.
type labelError struct{ err error }

func (e *labelError) Error() string { return "bad function call: " + e.err.Error() }
func (e *labelError) Unwrap() error { return e.err }

func fallbackReason(err error) string {
	var le *labelError
	switch {
	case errors.Is(err, ErrNoFunctionCall):
		return "no_call"
	case errors.As(err, &le):
		return "bad_label"
	}
	return "error"
}
