package nlu

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/dialog"
)

// MaxDistance bounds spelling correction of an explicitly captured value.
const MaxDistance = 3

// minFuzzyLen is the shortest word tried against the vocabulary when nothing
// was captured explicitly.
const minFuzzyLen = 4

var slotOrder = []dialog.Slot{dialog.SlotFood, dialog.SlotArea, dialog.SlotPrice}

// cue words whose predecessor names a slot value, as in "any food" or "north part".
var cues = map[string]dialog.Slot{
	"food":   dialog.SlotFood,
	"part":   dialog.SlotArea,
	"area":   dialog.SlotArea,
	"price":  dialog.SlotPrice,
	"priced": dialog.SlotPrice,
}

// Vocabulary is the set of known values per slot.
type Vocabulary map[dialog.Slot][]string

// VocabularyOf collects the food, area and price values of a catalog.
func VocabularyOf(c *catalog.Catalog) Vocabulary {
	v := make(Vocabulary, len(slotOrder))
	for _, slot := range slotOrder {
		v[slot] = c.Values(string(slot))
	}
	return v
}

// Values returns every value of every slot.
func (v Vocabulary) Values() []string {
	var out []string
	for _, slot := range slotOrder {
		out = append(out, v[slot]...)
	}
	return out
}

// Extractor pulls food, area and price preferences out of free text by exact
// vocabulary matches, "X food" style patterns and Levenshtein spelling
// correction.
type Extractor struct {
	vocab Vocabulary
	known map[dialog.Slot]map[string]bool
}

// NewExtractor returns an extractor over vocab. Values are matched lowercased.
func NewExtractor(vocab Vocabulary) *Extractor {
	e := &Extractor{
		vocab: make(Vocabulary, len(slotOrder)),
		known: make(map[dialog.Slot]map[string]bool, len(slotOrder)),
	}
	for _, slot := range slotOrder {
		values := make([]string, 0, len(vocab[slot]))
		e.known[slot] = make(map[string]bool)
		for _, v := range vocab[slot] {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || e.known[slot][v] {
				continue
			}
			e.known[slot][v] = true
			values = append(values, v)
		}
		slices.Sort(values)
		e.vocab[slot] = values
	}
	return e
}

// Extract implements dialog.Extractor.
func (e *Extractor) Extract(utterance string, focus dialog.Slot) dialog.Extraction {
	words := normalize(utterance)
	found := e.match(words)

	if allEmpty(found) {
		if focus != "" && dontCare(words) {
			found[focus] = dialog.Any
			return toExtraction(found)
		}
		if focus != "" {
			if v, _, ok := e.closestInUtterance(words, focus); ok {
				found[focus] = v
			}
			return toExtraction(found)
		}
		return toExtraction(e.fuzzy(words))
	}

	for _, slot := range slotOrder {
		v := found[slot]
		if v == "" || v == dialog.Any || e.known[slot][v] {
			continue
		}
		if best, _, ok := e.closest(v, slot, MaxDistance); ok {
			found[slot] = best
		}
	}
	if focus != "" && found[focus] == "" {
		if v, _, ok := e.closestInUtterance(words, focus); ok {
			found[focus] = v
		}
	}
	return toExtraction(found)
}

// match runs the exact and pattern pass. Later mentions win.
func (e *Extractor) match(words []string) map[dialog.Slot]string {
	found := make(map[dialog.Slot]string, len(slotOrder))
	explicit := make(map[dialog.Slot]bool, len(slotOrder))
	for i := 0; i < len(words); i++ {
		if i+1 < len(words) {
			if slot, ok := e.lookup(words[i] + " " + words[i+1]); ok {
				found[slot] = words[i] + " " + words[i+1]
				explicit[slot] = true
				i++
				continue
			}
		}
		w := words[i]
		if w == "center" && e.known[dialog.SlotArea]["centre"] {
			w = "centre"
		}
		if slot, ok := e.lookup(w); ok {
			found[slot] = w
			explicit[slot] = true
			continue
		}
		slot, ok := cues[w]
		if !ok || i == 0 || explicit[slot] || found[slot] != "" {
			continue
		}
		prev := words[i-1]
		// a value of another slot, as in "cheap food", is not this slot's value
		if _, known := e.lookup(prev); known || prev == "center" {
			continue
		}
		if prev == dialog.Any || !isStopword(prev) {
			found[slot] = prev
		}
	}
	return found
}

// lookup finds the slot a vocabulary value belongs to, food first.
func (e *Extractor) lookup(value string) (dialog.Slot, bool) {
	for _, slot := range slotOrder {
		if e.known[slot][value] {
			return slot, true
		}
	}
	return "", false
}

// fuzzy matches every word against every slot. A word counts only for the slot
// it is closest to; per slot the closest word wins, the earliest on a tie.
func (e *Extractor) fuzzy(words []string) map[dialog.Slot]string {
	type candidate struct {
		value string
		dist  int
	}
	best := make(map[dialog.Slot]candidate, len(slotOrder))
	for _, w := range words {
		if len(w) < minFuzzyLen || isStopword(w) {
			continue
		}
		var (
			slot dialog.Slot
			cand candidate
			hit  bool
		)
		for _, s := range slotOrder {
			v, d, ok := e.closest(w, s, allowedDistance(w))
			if ok && (!hit || d < cand.dist) {
				slot, cand, hit = s, candidate{v, d}, true
			}
		}
		if !hit {
			continue
		}
		if prev, ok := best[slot]; !ok || cand.dist < prev.dist {
			best[slot] = cand
		}
	}
	found := make(map[dialog.Slot]string, len(best))
	for s, c := range best {
		found[s] = c.value
	}
	return found
}

// closestInUtterance looks for the best spelling match of any word for one slot.
func (e *Extractor) closestInUtterance(words []string, slot dialog.Slot) (string, int, bool) {
	var (
		value string
		dist  int
		hit   bool
	)
	for _, w := range words {
		if len(w) < minFuzzyLen || isStopword(w) {
			continue
		}
		if v, d, ok := e.closest(w, slot, allowedDistance(w)); ok && (!hit || d < dist) {
			value, dist, hit = v, d, true
		}
	}
	return value, dist, hit
}

// closest returns the vocabulary value of slot nearest to word within limit.
// Vocabulary order breaks ties.
func (e *Extractor) closest(word string, slot dialog.Slot, limit int) (string, int, bool) {
	var (
		value string
		dist  int
		hit   bool
	)
	for _, v := range e.vocab[slot] {
		d := levenshtein.ComputeDistance(word, v)
		if d <= limit && (!hit || d < dist) {
			value, dist, hit = v, d, true
		}
	}
	return value, dist, hit
}

// allowedDistance is the typo budget of an uncaptured word; it grows with length.
func allowedDistance(word string) int {
	return min(MaxDistance, max(1, len(word)/3))
}

func dontCare(words []string) bool {
	joined := " " + strings.Join(words, " ") + " "
	for _, phrase := range []string{" any ", " dont care ", " doesnt matter ", " whatever "} {
		if strings.Contains(joined, phrase) {
			return true
		}
	}
	return false
}

func allEmpty(found map[dialog.Slot]string) bool {
	for _, v := range found {
		if v != "" {
			return false
		}
	}
	return true
}

func toExtraction(found map[dialog.Slot]string) dialog.Extraction {
	return dialog.Extraction{
		Food:  found[dialog.SlotFood],
		Area:  found[dialog.SlotArea],
		Price: found[dialog.SlotPrice],
	}
}
