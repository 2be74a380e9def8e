package networth

import (
	"cmp"
	"fmt"
	"strings"
)

// Group is a set of assets sharing the same group key, as displayed.
type Group struct {
	Key    string
	Assets []*Asset // sorted
	Total  Money
	Known  bool // false if the value of any asset is still unknown

	// Expanded is owned by the display. It survives regrouping as long as the
	// group key does.
	Expanded bool
}

// summarize computes the group's total value.
func (g *Group) summarize(currency string) {
	g.Total, g.Known = M(0, currency), true
	for _, a := range g.Assets {
		v, ok := a.TotalValue()
		if !ok {
			g.Known = false
			continue
		}
		g.Total = g.Total.Add(v)
	}
}

// Ordering decides how assets are grouped and sorted. It is called on every
// regrouping.
type Ordering interface {
	GroupKey(a *Asset) string
	CompareAssets(a, b *Asset) int
	CompareGroups(a, b *Group) int
}

// Field is an asset field assets can be grouped or sorted by.
type Field int

const (
	ByKind Field = iota
	ByLocation
	ByDescription
	ByValue
)

var fieldNames = []string{"kind", "location", "description", "value"}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField parses a field name.
func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if strings.EqualFold(s, name) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q, want one of %s", s, strings.Join(fieldNames, ", "))
}

// FieldOrdering groups assets by one field and sorts them by another. Grouping
// by value puts every asset in a single group.
type FieldOrdering struct {
	GroupBy    Field
	SortBy     Field
	Descending bool
}

func (o FieldOrdering) GroupKey(a *Asset) string {
	switch o.GroupBy {
	case ByKind:
		return string(a.Kind)
	case ByLocation:
		return a.Location
	case ByDescription:
		return a.Description
	}
	return ""
}

func (o FieldOrdering) CompareAssets(a, b *Asset) int {
	var c int
	switch o.SortBy {
	case ByKind:
		c = cmp.Compare(a.Kind, b.Kind)
	case ByLocation:
		c = cmp.Compare(a.Location, b.Location)
	case ByDescription:
		c = cmp.Compare(a.Description, b.Description)
	case ByValue:
		va, oka := a.TotalValue()
		vb, okb := b.TotalValue()
		// Unknown values always come last.
		if c = compareKnown(oka, okb); c != 0 {
			return c
		}
		if oka {
			c = va.Compare(vb)
		}
	}
	if c == 0 {
		c = cmp.Compare(a.Name(), b.Name())
	}
	if o.Descending {
		return -c
	}
	return c
}

func (o FieldOrdering) CompareGroups(a, b *Group) int {
	var c int
	if o.SortBy == ByValue {
		if c = compareKnown(a.Known, b.Known); c != 0 {
			return c
		}
		c = a.Total.Compare(b.Total)
	}
	if c == 0 {
		c = cmp.Compare(a.Key, b.Key)
	}
	if o.Descending {
		return -c
	}
	return c
}

// compareKnown sorts known before unknown.
func compareKnown(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}
