package dialog

import (
	"context"
	"strings"
)

// Act is the classified intent of a user utterance.
type Act string

// The closed set of dialog acts a classifier may produce.
const (
	ActAck      Act = "ack"
	ActAffirm   Act = "affirm"
	ActBye      Act = "bye"
	ActConfirm  Act = "confirm"
	ActDeny     Act = "deny"
	ActHello    Act = "hello"
	ActInform   Act = "inform"
	ActNegate   Act = "negate"
	ActNull     Act = "null"
	ActRepeat   Act = "repeat"
	ActReqAlts  Act = "reqalts"
	ActReqMore  Act = "reqmore"
	ActRequest  Act = "request"
	ActRestart  Act = "restart"
	ActThankYou Act = "thankyou"
)

var allActs = []Act{
	ActAck, ActAffirm, ActBye, ActConfirm, ActDeny, ActHello, ActInform, ActNegate,
	ActNull, ActRepeat, ActReqAlts, ActReqMore, ActRequest, ActRestart, ActThankYou,
}

// Acts returns every dialog act in alphabetical order.
func Acts() []Act {
	out := make([]Act, len(allActs))
	copy(out, allActs)
	return out
}

// Valid reports whether a belongs to the closed enumeration.
func (a Act) Valid() bool {
	for _, known := range allActs {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAct maps a classifier label onto an Act. Anything outside the
// enumeration, including the empty string, becomes ActNull.
func ParseAct(label string) Act {
	a := Act(strings.ToLower(strings.TrimSpace(label)))
	if !a.Valid() {
		return ActNull
	}
	return a
}

// Classifier labels an utterance with a dialog act.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (Act, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, utterance string) (Act, error)

func (f ClassifierFunc) Classify(ctx context.Context, utterance string) (Act, error) {
	return f(ctx, utterance)
}

// Extractor pulls primary slot values out of an utterance. focus is empty for
// unfocused extraction; otherwise it hints which slot an ambiguous answer fills.
type Extractor interface {
	Extract(utterance string, focus Slot) Extraction
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(utterance string, focus Slot) Extraction

func (f ExtractorFunc) Extract(utterance string, focus Slot) Extraction {
	return f(utterance, focus)
}
