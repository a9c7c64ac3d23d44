package dialog

import (
	"maps"
	"strings"
)

// Slot names one of the three primary preferences. The values double as the
// catalog column each slot filters on.
type Slot string

const (
	SlotFood  Slot = "food"
	SlotArea  Slot = "area"
	SlotPrice Slot = "pricerange"
)

// Any is a filled slot value meaning "no constraint".
const Any = "any"

// SecondaryAttr is an optional restaurant quality the user may ask for. The
// value is the keyword that switches it on.
type SecondaryAttr string

const (
	Touristic     SecondaryAttr = "touristic"
	AssignedSeats SecondaryAttr = "assigned seats"
	Children      SecondaryAttr = "children"
	Romantic      SecondaryAttr = "romantic"
)

// SecondaryPriority is the order in which secondary attributes are consulted.
// Only the first one set takes effect.
var SecondaryPriority = []SecondaryAttr{Touristic, AssignedSeats, Children, Romantic}

// Extraction is the outcome of preference extraction. Empty fields were not found.
type Extraction struct {
	Food  string
	Area  string
	Price string
}

// Empty reports whether nothing was extracted.
func (e Extraction) Empty() bool {
	return e.Food == "" && e.Area == "" && e.Price == ""
}

// Preferences holds what the user asked for so far.
type Preferences struct {
	Food      string                 `json:"food"`
	Area      string                 `json:"area"`
	Price     string                 `json:"pricerange"`
	Secondary map[SecondaryAttr]bool `json:"secondary"`
}

// NewPreferences returns preferences with every slot unfilled.
func NewPreferences() *Preferences {
	p := &Preferences{}
	p.Reset()
	return p
}

// Reset clears every slot and secondary attribute.
func (p *Preferences) Reset() {
	p.Food, p.Area, p.Price = "", "", ""
	p.Secondary = make(map[SecondaryAttr]bool, len(SecondaryPriority))
	for _, attr := range SecondaryPriority {
		p.Secondary[attr] = false
	}
}

// Get returns the value of a primary slot.
func (p *Preferences) Get(slot Slot) string {
	switch slot {
	case SlotFood:
		return p.Food
	case SlotArea:
		return p.Area
	case SlotPrice:
		return p.Price
	}
	return ""
}

// ApplyExtraction overwrites every slot the extraction found. Last write wins;
// slots the extraction left empty are untouched.
func (p *Preferences) ApplyExtraction(e Extraction) {
	if e.Food != "" {
		p.Food = e.Food
	}
	if e.Area != "" {
		p.Area = e.Area
	}
	if e.Price != "" {
		p.Price = e.Price
	}
}

// ApplySecondaryKeywords switches on every secondary attribute whose keyword
// occurs in the utterance. Attributes are never switched off here.
func (p *Preferences) ApplySecondaryKeywords(utterance string) {
	lower := strings.ToLower(utterance)
	for _, attr := range SecondaryPriority {
		if strings.Contains(lower, string(attr)) {
			p.Secondary[attr] = true
		}
	}
}

// Has reports whether attr is switched on.
func (p *Preferences) Has(attr SecondaryAttr) bool {
	return p.Secondary[attr]
}

// ActiveSecondary returns the highest priority attribute that is switched on.
func (p *Preferences) ActiveSecondary() (SecondaryAttr, bool) {
	for _, attr := range SecondaryPriority {
		if p.Secondary[attr] {
			return attr, true
		}
	}
	return "", false
}

// Complete reports whether all three primary slots are filled.
func (p *Preferences) Complete() bool {
	return p.Food != "" && p.Area != "" && p.Price != ""
}

// Clone returns a deep copy.
func (p *Preferences) Clone() Preferences {
	c := *p
	c.Secondary = maps.Clone(p.Secondary)
	return c
}
