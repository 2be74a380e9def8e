package renderer

import (
	"strconv"
	"strings"

	"github.com/etnz/networth"
)

// unknown replaces a value that is not known yet.
const unknown = "?"

// Report is the printable view of a collection.
type Report struct {
	Currency string
	Groups   []Group
	Total    string
	Hints    []string // numbered as referenced by Asset.Note
}

// Group is the printable view of a networth.Group.
type Group struct {
	Title    string
	Total    string
	Expanded bool
	Assets   []Asset
}

// Asset is one row of a group.
type Asset struct {
	Name      string
	Location  string
	Quantity  string
	UnitValue string
	Value     string
	Note      string // reference to a hint, like "[1]"
}

// NewReport builds the report of groups worth total, known false if some value
// is still unknown.
func NewReport(currency string, groups []*networth.Group, total networth.Money, known bool) *Report {
	r := &Report{Currency: currency, Total: unknown}
	if known {
		r.Total = total.String()
	}
	hints := make(map[string]int)
	for _, g := range groups {
		rg := Group{Title: g.Key, Total: unknown, Expanded: g.Expanded}
		if rg.Title == "" {
			rg.Title = "All"
		}
		if g.Known {
			rg.Total = g.Total.String()
		}
		for _, a := range g.Assets {
			ra := Asset{
				Name:      cell(a.Name()),
				Location:  cell(a.Location),
				Quantity:  unknown,
				UnitValue: unknown,
				Value:     unknown,
			}
			if q, ok := a.Quantity(); ok {
				ra.Quantity = q.String()
			}
			if v, ok := a.UnitValue(); ok {
				ra.UnitValue = v.String()
			}
			if v, ok := a.TotalValue(); ok {
				ra.Value = v.String()
			}
			if hint := a.Hint(); hint != "" {
				n, ok := hints[hint]
				if !ok {
					r.Hints = append(r.Hints, cell(hint))
					n = len(r.Hints)
					hints[hint] = n
				}
				ra.Note = "[" + strconv.Itoa(n) + "]"
			}
			rg.Assets = append(rg.Assets, ra)
		}
		r.Groups = append(r.Groups, rg)
	}
	return r
}

// cell escapes s for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
