package nlu

import "strings"

// stopwords are skipped by both the classifier and fuzzy matching. Negations,
// "more", "about", "other" and "again" are kept because they carry the act.
var stopwords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "our": true,
	"ours": true, "you": true, "your": true, "yours": true, "he": true, "him": true,
	"his": true, "she": true, "her": true, "it": true, "its": true, "they": true,
	"them": true, "their": true, "what": true, "which": true, "who": true,
	"whom": true, "this": true, "that": true, "these": true, "those": true,
	"am": true, "is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"having": true, "do": true, "does": true, "did": true, "doing": true,
	"a": true, "an": true, "the": true, "and": true, "but": true, "if": true,
	"or": true, "because": true, "as": true, "until": true, "while": true,
	"of": true, "at": true, "by": true, "for": true, "with": true,
	"against": true, "between": true, "into": true, "through": true,
	"during": true, "before": true, "after": true, "above": true, "below": true,
	"to": true, "from": true, "up": true, "down": true, "in": true, "out": true,
	"on": true, "off": true, "over": true, "under": true, "further": true,
	"then": true, "once": true, "here": true, "there": true, "when": true,
	"where": true, "why": true, "how": true, "all": true, "any": true,
	"both": true, "each": true, "few": true, "most": true, "some": true,
	"such": true, "only": true, "own": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "s": true, "t": true, "can": true,
	"will": true, "just": true, "should": true, "now": true, "im": true,
	"id": true, "would": true, "could": true, "um": true, "uh": true,
	"like": true, "looking": true,
}

func isStopword(w string) bool {
	return stopwords[w]
}

// normalize lowercases s, drops apostrophes and turns every other character
// outside [a-z0-9] into a separator.
func normalize(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "'", "")
	return strings.FieldsFunc(s, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}
