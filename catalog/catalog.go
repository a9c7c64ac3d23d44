package catalog

import (
	"slices"
	"strings"
)

// Column names of the restaurant table. Every source must provide all of them.
const (
	ColumnName        = "restaurantname"
	ColumnFood        = "food"
	ColumnArea        = "area"
	ColumnPriceRange  = "pricerange"
	ColumnQuality     = "quality"
	ColumnCrowdedness = "crowdedness"
	ColumnStay        = "stay"
	ColumnPhone       = "phone"
	ColumnAddress     = "addr"
	ColumnPostcode    = "postcode"
)

// RequiredColumns lists the schema in canonical order.
var RequiredColumns = []string{
	ColumnName,
	ColumnPriceRange,
	ColumnArea,
	ColumnFood,
	ColumnPhone,
	ColumnAddress,
	ColumnPostcode,
	ColumnQuality,
	ColumnCrowdedness,
	ColumnStay,
}

// categorical columns are compared case-insensitively, so they are stored lowercased
var categorical = map[string]bool{
	ColumnFood:        true,
	ColumnArea:        true,
	ColumnPriceRange:  true,
	ColumnQuality:     true,
	ColumnCrowdedness: true,
	ColumnStay:        true,
}

// Restaurant is one row of the catalog. An empty field means the value is unknown.
type Restaurant struct {
	Name        string `json:"name"`
	Food        string `json:"food,omitempty"`
	Area        string `json:"area,omitempty"`
	PriceRange  string `json:"pricerange,omitempty"`
	Quality     string `json:"quality,omitempty"`
	Crowdedness string `json:"crowdedness,omitempty"`
	Stay        string `json:"stay,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"addr,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
}

// Field returns the value stored under a schema column name.
func (r *Restaurant) Field(column string) string {
	switch column {
	case ColumnName:
		return r.Name
	case ColumnFood:
		return r.Food
	case ColumnArea:
		return r.Area
	case ColumnPriceRange:
		return r.PriceRange
	case ColumnQuality:
		return r.Quality
	case ColumnCrowdedness:
		return r.Crowdedness
	case ColumnStay:
		return r.Stay
	case ColumnPhone:
		return r.Phone
	case ColumnAddress:
		return r.Address
	case ColumnPostcode:
		return r.Postcode
	}
	return ""
}

func (r *Restaurant) set(column, value string) {
	value = strings.TrimSpace(value)
	if categorical[column] {
		value = strings.ToLower(value)
	}
	switch column {
	case ColumnName:
		r.Name = value
	case ColumnFood:
		r.Food = value
	case ColumnArea:
		r.Area = value
	case ColumnPriceRange:
		r.PriceRange = value
	case ColumnQuality:
		r.Quality = value
	case ColumnCrowdedness:
		r.Crowdedness = value
	case ColumnStay:
		r.Stay = value
	case ColumnPhone:
		r.Phone = value
	case ColumnAddress:
		r.Address = value
	case ColumnPostcode:
		r.Postcode = value
	}
}

// Predicate selects restaurants.
type Predicate func(r *Restaurant) bool

// Equals matches restaurants whose column holds exactly value.
func Equals(column, value string) Predicate {
	return func(r *Restaurant) bool {
		return r.Field(column) == value
	}
}

// In matches restaurants whose column holds one of values.
func In(column string, values ...string) Predicate {
	return func(r *Restaurant) bool {
		return slices.Contains(values, r.Field(column))
	}
}

// Or matches when any of preds matches.
func Or(preds ...Predicate) Predicate {
	return func(r *Restaurant) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// And matches when all of preds match.
func And(preds ...Predicate) Predicate {
	return func(r *Restaurant) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Catalog is a read-only, ordered set of restaurants. It is safe for concurrent
// use because nothing mutates it after construction.
type Catalog struct {
	records []Restaurant
}

// New builds a catalog from records, keeping their order.
func New(records []Restaurant) *Catalog {
	return &Catalog{records: slices.Clone(records)}
}

// Len returns the number of restaurants.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Filter returns the restaurants matching every predicate, in catalog order.
// With no predicates the whole catalog is returned.
func (c *Catalog) Filter(preds ...Predicate) []*Restaurant {
	match := And(preds...)
	out := make([]*Restaurant, 0, len(c.records))
	for i := range c.records {
		r := &c.records[i]
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Values returns the sorted distinct non-empty values of a column.
func (c *Catalog) Values(column string) []string {
	seen := make(map[string]struct{})
	for i := range c.records {
		if v := c.records[i].Field(column); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
