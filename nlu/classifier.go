package nlu

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/room4-2/dinedialog/dialog"
)

//go:embed acts.dat
var defaultTraining []byte

// vote is how often a word was seen in utterances of one act.
type vote struct {
	act   dialog.Act
	count int
}

// KeywordClassifier labels an utterance by the first word it has a rule for;
// the act that word was seen with most often wins. Utterances with no known
// word are null.
type KeywordClassifier struct {
	mu    sync.RWMutex
	rules map[string][]vote
}

// NewKeywordClassifier returns a classifier trained on the built-in examples.
func NewKeywordClassifier() *KeywordClassifier {
	c := &KeywordClassifier{rules: make(map[string][]vote)}
	if err := c.Train(bytes.NewReader(defaultTraining)); err != nil {
		panic(fmt.Sprintf("built-in classifier rules: %v", err))
	}
	return c
}

// NewEmptyKeywordClassifier returns a classifier without rules.
func NewEmptyKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: make(map[string][]vote)}
}

// Train adds word counts from lines of the form "act utterance words". Blank
// lines and lines starting with # are skipped. Stopwords never become rules.
func (c *KeywordClassifier) Train(r io.Reader) error {
	counts := make(map[string]map[dialog.Act]int)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		label, utterance, _ := strings.Cut(text, " ")
		act := dialog.Act(strings.ToLower(label))
		if !act.Valid() {
			return fmt.Errorf("line %d: unknown dialog act %q", line, label)
		}
		for _, w := range normalize(utterance) {
			if isStopword(w) {
				continue
			}
			if counts[w] == nil {
				counts[w] = make(map[dialog.Act]int)
			}
			counts[w][act]++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read training data: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for w, byAct := range counts {
		for act, n := range byAct {
			c.addLocked(w, act, n)
		}
	}
	return nil
}

// WithInformCues makes every word of values an inform cue. Catalog vocabulary is
// the usual source: an utterance that opens with "chinese" is an inform.
func (c *KeywordClassifier) WithInformCues(values ...string) *KeywordClassifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range values {
		for _, w := range normalize(v) {
			if !isStopword(w) {
				c.addLocked(w, dialog.ActInform, 1)
			}
		}
	}
	return c
}

func (c *KeywordClassifier) addLocked(word string, act dialog.Act, n int) {
	votes := c.rules[word]
	for i := range votes {
		if votes[i].act == act {
			votes[i].count += n
			return
		}
	}
	c.rules[word] = append(votes, vote{act: act, count: n})
}

// Classify implements dialog.Classifier. It never fails.
func (c *KeywordClassifier) Classify(_ context.Context, utterance string) (dialog.Act, error) {
	return c.Predict(utterance), nil
}

// Predict returns the act for utterance.
func (c *KeywordClassifier) Predict(utterance string) dialog.Act {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, w := range normalize(utterance) {
		votes, ok := c.rules[w]
		if !ok {
			continue
		}
		best := slices.MaxFunc(votes, func(a, b vote) int {
			if a.count != b.count {
				return a.count - b.count
			}
			// on a tie the alphabetically first act wins
			return strings.Compare(string(b.act), string(a.act))
		})
		return best.act
	}
	return dialog.ActNull
}

// Rules returns the number of words the classifier knows.
func (c *KeywordClassifier) Rules() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}
