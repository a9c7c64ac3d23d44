package nlu

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/dinedialog/dialog"
)

func TestKeywordClassifier_BuiltinRules(t *testing.T) {
	c := NewKeywordClassifier()

	tests := []struct {
		utterance string
		want      dialog.Act
	}{
		{"Yes please!", dialog.ActAffirm},
		{"okay", dialog.ActAck},
		{"goodbye", dialog.ActBye},
		{"thank you goodbye", dialog.ActThankYou},
		{"I want chinese food", dialog.ActInform},
		{"no", dialog.ActNegate},
		{"not really", dialog.ActNegate},
		{"start over", dialog.ActRestart},
		{"what is the phone number", dialog.ActRequest},
		{"hello", dialog.ActHello},
		{"how about italian", dialog.ActReqAlts},
		{"tell me more", dialog.ActReqMore},
		{"say that again", dialog.ActRepeat},
		{"that is wrong", dialog.ActDeny},
		{"xyzzy", dialog.ActNull},
		{"", dialog.ActNull},
		{"the of a", dialog.ActNull},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.utterance)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordClassifier_Train(t *testing.T) {
	c := NewEmptyKeywordClassifier()
	require.Zero(t, c.Rules())

	err := c.Train(strings.NewReader(`# comments and blank lines are skipped

inform i want gastropub food
inform gastropub please
reqalts gastropub instead
AFFIRM absolutely
`))
	require.NoError(t, err)

	assert.Equal(t, dialog.ActInform, c.Predict("gastropub"))
	assert.Equal(t, dialog.ActAffirm, c.Predict("Absolutely."))
	assert.Equal(t, dialog.ActInform, c.Predict("want something"))
	assert.Equal(t, dialog.ActNull, c.Predict("i"), "stopwords never become rules")
}

func TestKeywordClassifier_TrainRejectsUnknownAct(t *testing.T) {
	err := NewEmptyKeywordClassifier().Train(strings.NewReader("inform hi\nsing la la la\n"))
	assert.ErrorContains(t, err, `line 2: unknown dialog act "sing"`)
}

func TestKeywordClassifier_FirstKnownWordDecides(t *testing.T) {
	c := NewEmptyKeywordClassifier()
	require.NoError(t, c.Train(strings.NewReader("negate nope\nhello howdy\n")))
	assert.Equal(t, dialog.ActHello, c.Predict("howdy nope"))
	assert.Equal(t, dialog.ActNegate, c.Predict("nope howdy"))
}

func TestKeywordClassifier_TieGoesToFirstAct(t *testing.T) {
	c := NewEmptyKeywordClassifier()
	require.NoError(t, c.Train(strings.NewReader("request place\nconfirm place\n")))
	assert.Equal(t, dialog.ActConfirm, c.Predict("place"))
}

func TestKeywordClassifier_InformCues(t *testing.T) {
	c := NewEmptyKeywordClassifier().WithInformCues("asian oriental", "the", "north")
	assert.Equal(t, dialog.ActInform, c.Predict("oriental"))
	assert.Equal(t, dialog.ActInform, c.Predict("the north"))
	assert.Equal(t, 3, c.Rules())
}

func TestKeywordClassifier_ConcurrentUse(t *testing.T) {
	c := NewKeywordClassifier()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Predict("i want chinese food")
		}()
		go func() {
			defer wg.Done()
			c.WithInformCues("chinese")
		}()
	}
	wg.Wait()
	assert.Equal(t, dialog.ActInform, c.Predict("chinese"))
}
