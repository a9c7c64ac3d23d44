package dialog

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/room4-2/dinedialog/catalog"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

var defaultTemplates = mustParseTemplates(defaultTemplatesYAML)

type variants struct {
	Informal string `yaml:"informal"`
	Formal   string `yaml:"formal"`
}

type templateFile struct {
	States    map[State]variants  `yaml:"states"`
	NoResults variants            `yaml:"no_results"`
	Reasons   map[Reason]variants `yaml:"reasons"`
}

// pair holds the parsed informal and formal variant of one template.
type pair [2]*template.Template

func (p pair) pick(formal bool) *template.Template {
	if formal {
		return p[1]
	}
	return p[0]
}

// Templates is a parsed set of system prompts.
type Templates struct {
	states    map[State]pair
	noResults pair
	reasons   map[Reason]pair
}

// ParseTemplates reads a YAML template set. Every state and every reason needs
// both variants.
func ParseTemplates(data []byte) (*Templates, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	t := &Templates{
		states:  make(map[State]pair, len(allStates)),
		reasons: make(map[Reason]pair, len(f.Reasons)),
	}
	for _, s := range allStates {
		v, ok := f.States[s]
		if !ok {
			return nil, fmt.Errorf("missing template for state %s", s)
		}
		p, err := parsePair(string(s), v)
		if err != nil {
			return nil, err
		}
		t.states[s] = p
	}

	p, err := parsePair("no_results", f.NoResults)
	if err != nil {
		return nil, err
	}
	t.noResults = p

	for _, r := range []Reason{ReasonCheapGoodFood, ReasonPopularFood, ReasonBusy, ReasonShortStay, ReasonLongStay, ReasonNotBusy} {
		v, ok := f.Reasons[r]
		if !ok {
			return nil, fmt.Errorf("missing template for reason %s", r)
		}
		p, err := parsePair(string(r), v)
		if err != nil {
			return nil, err
		}
		t.reasons[r] = p
	}
	return t, nil
}

func parsePair(name string, v variants) (pair, error) {
	if v.Informal == "" || v.Formal == "" {
		return pair{}, fmt.Errorf("template %s: both variants are required", name)
	}
	informal, err := template.New(name).Option("missingkey=error").Parse(v.Informal)
	if err != nil {
		return pair{}, fmt.Errorf("template %s: %w", name, err)
	}
	formal, err := template.New(name).Option("missingkey=error").Parse(v.Formal)
	if err != nil {
		return pair{}, fmt.Errorf("template %s: %w", name, err)
	}
	return pair{informal, formal}, nil
}

func mustParseTemplates(data []byte) *Templates {
	t, err := ParseTemplates(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Composer renders the system prompt for a dialog state.
type Composer struct {
	templates *Templates
	formal    bool
}

// NewComposer returns a composer for the given register. A nil t selects the
// built-in templates.
func NewComposer(t *Templates, formal bool) *Composer {
	if t == nil {
		t = defaultTemplates
	}
	return &Composer{templates: t, formal: formal}
}

// Formal reports which register the composer uses.
func (c *Composer) Formal() bool { return c.formal }

// Render returns the prompt for state. It never fails: a template that cannot
// execute falls back to its raw source text.
func (c *Composer) Render(state State, prefs *Preferences, results Results, detail Detail) string {
	switch state {
	case StateTellLookupResults:
		cur, ok := results.Current()
		if !ok {
			return c.exec(c.templates.noResults, nil)
		}
		text := c.exec(c.templates.states[state], suggestion{Name: cur.Name, Clauses: describe(cur)})
		if j := c.Justification(cur, prefs); j != "" {
			text += " " + j
		}
		return text
	case StateOfferFurtherInformation:
		return c.exec(c.templates.states[state], detail)
	}
	p, ok := c.templates.states[state]
	if !ok {
		return ""
	}
	return c.exec(p, nil)
}

// RenderMachine renders the current state of m.
func (c *Composer) RenderMachine(m *Machine) string {
	return c.Render(m.state, m.prefs, m.results, m.detail)
}

// Justification explains why r fits the active secondary attribute. It is empty
// when no attribute is active.
func (c *Composer) Justification(r *catalog.Restaurant, prefs *Preferences) string {
	if r == nil || prefs == nil {
		return ""
	}
	reason := Explain(r, prefs)
	p, ok := c.templates.reasons[reason]
	if !ok {
		return ""
	}
	return c.exec(p, r)
}

func (c *Composer) exec(p pair, data any) string {
	t := p.pick(c.formal)
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return t.Root.String()
	}
	return b.String()
}

type suggestion struct {
	Name    string
	Clauses string
}

// describe lists the food, price and area the catalog knows about r, leaving out
// missing fields.
func describe(r *catalog.Restaurant) string {
	var clauses []string
	if r.Food != "" {
		clauses = append(clauses, "serves "+r.Food+" food")
	}
	if r.PriceRange != "" {
		clauses = append(clauses, "has "+r.PriceRange+" prices")
	}
	if r.Area != "" {
		clauses = append(clauses, "is in the "+r.Area+" part of town")
	}
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0]
	}
	return strings.Join(clauses[:len(clauses)-1], ", ") + " and " + clauses[len(clauses)-1]
}
