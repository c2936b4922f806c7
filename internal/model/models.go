package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a single review entry. Records are immutable once created;
// the collection is only ever mutated by whole-document replacement.
type Record struct {
	Restaurant string  `json:"restaurant"`
	FoodItem   string  `json:"foodItem"`
	Price      Price   `json:"price"`
	Ratings    Ratings `json:"ratings"`
	Flags      Flags   `json:"binaryFlags"`
	Timestamp  string  `json:"timestamp"`       // RFC3339 UTC, set at creation time
	Image      string  `json:"image,omitempty"` // artifact reference, empty when no photo
}

// Ratings holds the four 1-10 scores of a record.
type Ratings struct {
	Taste   int `json:"taste"`
	Texture int `json:"texture"`
	Size    int `json:"size"`
	Value   int `json:"value"`
}

// Flags holds the yes/no attributes of a record.
type Flags struct {
	EL bool `json:"EL"`
	AG bool `json:"AG"`
}

// Validate checks field constraints on a record before it enters the collection.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Restaurant) == "" {
		return fmt.Errorf("restaurant must not be empty")
	}
	if strings.TrimSpace(r.FoodItem) == "" {
		return fmt.Errorf("food item must not be empty")
	}
	if r.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	for _, s := range []struct {
		name  string
		value int
	}{
		{"taste", r.Ratings.Taste},
		{"texture", r.Ratings.Texture},
		{"size", r.Ratings.Size},
		{"value", r.Ratings.Value},
	} {
		if s.value < 1 || s.value > 10 {
			return fmt.Errorf("%s rating must be between 1 and 10, got %d", s.name, s.value)
		}
	}
	return nil
}

// Price is a monetary amount in cents. It serializes as a JSON string with
// exactly two decimal places ("4.50"), which keeps stored documents free of
// float rounding noise.
type Price int64

// ParsePrice parses a decimal string like "4.50" into a Price.
// At most two fractional digits are accepted.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("price must not be empty")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("price %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return Price(cents), nil
}

// String formats the price with exactly two decimal places.
func (p Price) String() string {
	sign := ""
	cents := int64(p)
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts both the canonical string form and a bare JSON
// number, so documents written by earlier clients still load.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Collection is the ordered set of all records, stored as one JSON array
// document at a fixed remote path. Insertion order is the source of truth.
type Collection []Record

// Append returns a new collection with the record added at the end.
// The receiver is not modified.
func (c Collection) Append(r Record) Collection {
	out := make(Collection, len(c)+1)
	copy(out, c)
	out[len(c)] = r
	return out
}

// RemoveAt returns a new collection with the record at index i removed,
// preserving the relative order of the remaining records.
func (c Collection) RemoveAt(i int) (Collection, error) {
	if i < 0 || i >= len(c) {
		return nil, fmt.Errorf("index %d out of range for collection of %d record(s)", i, len(c))
	}
	out := make(Collection, 0, len(c)-1)
	out = append(out, c[:i]...)
	out = append(out, c[i+1:]...)
	return out, nil
}

// Marshal serializes the collection as the remote document body.
func (c Collection) Marshal() ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	return json.MarshalIndent(c, "", "  ")
}

// UnmarshalCollection parses a remote document body. An empty body is an
// empty collection, matching a freshly created remote file.
func UnmarshalCollection(data []byte) (Collection, error) {
	if len(data) == 0 {
		return Collection{}, nil
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing collection document: %w", err)
	}
	return c, nil
}
