package dialog

import (
	"context"
	"strings"

	"github.com/room4-2/dinedialog/catalog"
)

// Options are the presentation settings of one conversation.
type Options struct {
	Formal    bool
	Uppercase bool
	// Templates overrides the built-in prompts when non-nil.
	Templates *Templates
}

// Turn is the outcome of one user utterance.
type Turn struct {
	Utterance string `json:"utterance"`
	Act       Act    `json:"act"`
	State     State  `json:"state"`
	Prompt    string `json:"prompt"`
	// Handled is false when the act was a no-op in the previous state.
	Handled bool `json:"handled"`
	Done    bool `json:"done"`
	// ClassifyErr is the classifier failure that turned the act into null.
	ClassifyErr error `json:"-"`
}

// Session is one conversation: classifier, state machine and composer wired
// together. Sessions share nothing mutable, but a single Session must be fed
// sequentially.
type Session struct {
	machine    *Machine
	composer   *Composer
	classifier Classifier
	uppercase  bool
	prompt     string
}

// NewSession starts a conversation in the Welcome state.
func NewSession(cat *catalog.Catalog, classifier Classifier, extractor Extractor, opts Options) *Session {
	s := &Session{
		machine:    NewMachine(NewEngine(cat), extractor),
		composer:   NewComposer(opts.Templates, opts.Formal),
		classifier: classifier,
		uppercase:  opts.Uppercase,
	}
	s.prompt = s.render()
	return s
}

// Submit classifies the utterance, applies the act and renders the next prompt.
// A classifier error is treated as the null act.
func (s *Session) Submit(ctx context.Context, utterance string) Turn {
	act, err := s.classifier.Classify(ctx, utterance)
	if err != nil {
		act = ActNull
	}
	turn := s.Apply(act, utterance)
	turn.ClassifyErr = err
	return turn
}

// Apply runs an already classified act.
func (s *Session) Apply(act Act, utterance string) Turn {
	if !act.Valid() {
		act = ActNull
	}
	handled := s.machine.Transition(act, utterance)
	if handled {
		s.prompt = s.render()
	}
	return Turn{
		Utterance: utterance,
		Act:       act,
		State:     s.machine.State(),
		Prompt:    s.prompt,
		Handled:   handled,
		Done:      s.machine.Done(),
	}
}

// Prompt returns the current system utterance.
func (s *Session) Prompt() string { return s.prompt }

// State returns the current dialog state.
func (s *Session) State() State { return s.machine.State() }

// Preferences returns a copy of the collected preferences.
func (s *Session) Preferences() Preferences { return s.machine.Preferences() }

// Results returns the last lookup results.
func (s *Session) Results() Results { return s.machine.Results() }

// IsComplete reports whether the conversation reached Exit.
func (s *Session) IsComplete() bool { return s.machine.Done() }

func (s *Session) render() string {
	text := s.composer.RenderMachine(s.machine)
	if s.uppercase {
		text = strings.ToUpper(text)
	}
	return text
}
