package dialog

import (
	"github.com/room4-2/dinedialog/catalog"
)

// popularCuisines are familiar to tourists.
var popularCuisines = []string{"chinese", "italian", "european", "indian", "british", "asian oriental"}

var secondaryRules = map[SecondaryAttr]catalog.Predicate{
	Touristic: catalog.Or(
		catalog.And(
			catalog.Equals(catalog.ColumnPriceRange, "cheap"),
			catalog.Equals(catalog.ColumnQuality, "good"),
		),
		catalog.In(catalog.ColumnFood, popularCuisines...),
	),
	AssignedSeats: catalog.Equals(catalog.ColumnCrowdedness, "busy"),
	Children:      catalog.Equals(catalog.ColumnStay, "short"),
	Romantic: catalog.Or(
		catalog.Equals(catalog.ColumnStay, "long"),
		catalog.Equals(catalog.ColumnCrowdedness, "not busy"),
	),
}

// Results is an ordered lookup outcome plus the suggestion currently offered.
type Results struct {
	Records []*catalog.Restaurant
	Cursor  int
}

// Len returns the number of matching restaurants.
func (r Results) Len() int {
	return len(r.Records)
}

// Empty reports whether nothing matched.
func (r Results) Empty() bool {
	return len(r.Records) == 0
}

// Current returns the restaurant under the cursor.
func (r Results) Current() (*catalog.Restaurant, bool) {
	if r.Cursor < 0 || r.Cursor >= len(r.Records) {
		return nil, false
	}
	return r.Records[r.Cursor], true
}

// HasNext reports whether an unseen suggestion exists beyond the cursor.
func (r Results) HasNext() bool {
	return r.Cursor+1 < len(r.Records)
}

// Reason names why a restaurant satisfies the active secondary attribute.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonCheapGoodFood Reason = "touristic_cheap_good"
	ReasonPopularFood   Reason = "touristic_popular_food"
	ReasonBusy          Reason = "assigned_seats_busy"
	ReasonShortStay     Reason = "children_short_stay"
	ReasonLongStay      Reason = "romantic_long_stay"
	ReasonNotBusy       Reason = "romantic_not_busy"
)

// Engine runs preference lookups against a catalog.
type Engine struct {
	catalog *catalog.Catalog
}

// NewEngine returns an engine over c.
func NewEngine(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// Lookup filters the catalog on the filled primary slots, skipping "any", then
// on the rule of the highest priority secondary attribute. Catalog order is kept
// and the cursor starts at the first result.
func (e *Engine) Lookup(p *Preferences) Results {
	var preds []catalog.Predicate
	for _, slot := range []Slot{SlotFood, SlotArea, SlotPrice} {
		if v := p.Get(slot); v != "" && v != Any {
			preds = append(preds, catalog.Equals(string(slot), v))
		}
	}
	// with no primary constraint the whole catalog passes, secondary included
	if len(preds) == 0 {
		return Results{Records: e.catalog.Filter()}
	}
	if attr, ok := p.ActiveSecondary(); ok {
		preds = append(preds, secondaryRules[attr])
	}
	return Results{Records: e.catalog.Filter(preds...)}
}

// Explain picks the sub-condition of the active secondary rule that r itself
// satisfies. It returns ReasonNone when no attribute is set or r satisfies none.
func Explain(r *catalog.Restaurant, p *Preferences) Reason {
	attr, ok := p.ActiveSecondary()
	if !ok {
		return ReasonNone
	}
	switch attr {
	case Touristic:
		if r.PriceRange == "cheap" && r.Quality == "good" {
			return ReasonCheapGoodFood
		}
		if catalog.In(catalog.ColumnFood, popularCuisines...)(r) {
			return ReasonPopularFood
		}
	case AssignedSeats:
		if r.Crowdedness == "busy" {
			return ReasonBusy
		}
	case Children:
		if r.Stay == "short" {
			return ReasonShortStay
		}
	case Romantic:
		if r.Stay == "long" {
			return ReasonLongStay
		}
		if r.Crowdedness == "not busy" {
			return ReasonNotBusy
		}
	}
	return ReasonNone
}
