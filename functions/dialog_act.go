package functions

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/room4-2/dinedialog/dialog"
)

// ClassifyDialogActName is the tool the model must call with its answer.
const ClassifyDialogActName = "classify_dialog_act"

var actGuide = map[dialog.Act]string{
	dialog.ActAck:      "acknowledgement, e.g. \"okay\", \"kay\"",
	dialog.ActAffirm:   "positive confirmation, e.g. \"yes\", \"right\"",
	dialog.ActBye:      "greeting at the end of the dialog, e.g. \"see you\", \"goodbye\"",
	dialog.ActConfirm:  "checks whether a given fact is true, e.g. \"is it in the center of town\"",
	dialog.ActDeny:     "rejects the suggestion, e.g. \"i dont want vietnamese food\"",
	dialog.ActHello:    "greeting at the start of the dialog, e.g. \"hi i want a restaurant\"",
	dialog.ActInform:   "states a preference or constraint, e.g. \"i want chinese food\", \"any part of town\", \"somewhere romantic\"",
	dialog.ActNegate:   "negation, e.g. \"no\", \"no in any area\"",
	dialog.ActNull:     "noise or utterance without content, e.g. \"cough\"",
	dialog.ActRepeat:   "asks for repetition, e.g. \"can you repeat that\"",
	dialog.ActReqAlts:  "asks for an alternative suggestion, e.g. \"how about korean food\"",
	dialog.ActReqMore:  "asks for more suggestions, e.g. \"more\"",
	dialog.ActRequest:  "asks for information, e.g. \"what is the post code\"",
	dialog.ActRestart:  "wants to start over, e.g. \"okay start over\"",
	dialog.ActThankYou: "expresses thanks, e.g. \"thank you good bye\"",
}

// GetClassifyDialogActFunctionDeclaration returns the function declaration for Gemini
func GetClassifyDialogActFunctionDeclaration() *genai.FunctionDeclaration {
	acts := dialog.Acts()
	enum := make([]string, len(acts))
	for i, a := range acts {
		enum[i] = string(a)
	}
	return &genai.FunctionDeclaration{
		Name:        ClassifyDialogActName,
		Description: "Record the dialog act of the user's latest utterance to a restaurant recommendation system",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"act": {
					Type:        genai.TypeString,
					Description: "The single dialog act that best describes the utterance",
					Enum:        enum,
				},
			},
			Required: []string{"act"},
		},
	}
}

// GetDialogActGuide describes every dialog act, one per line.
func GetDialogActGuide() string {
	var b strings.Builder
	for _, a := range dialog.Acts() {
		fmt.Fprintf(&b, "- %s: %s\n", a, actGuide[a])
	}
	return b.String()
}

// ParseClassifyDialogActCall reads the act argument of a classify_dialog_act call.
func ParseClassifyDialogActCall(call *genai.FunctionCall) (dialog.Act, error) {
	if call == nil || call.Name != ClassifyDialogActName {
		return dialog.ActNull, fmt.Errorf("unexpected function call")
	}
	raw, ok := call.Args["act"].(string)
	if !ok {
		return dialog.ActNull, fmt.Errorf("missing act argument")
	}
	act := dialog.Act(strings.ToLower(strings.TrimSpace(raw)))
	if !act.Valid() {
		return dialog.ActNull, fmt.Errorf("unknown dialog act %q", raw)
	}
	return act, nil
}
