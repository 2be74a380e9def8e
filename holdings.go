package networth

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultCurrency is the base currency of a holdings file that declares none.
const DefaultCurrency = "EUR"

// Holdings is the content of a holdings file.
type Holdings struct {
	Currency string
	Assets   []*Asset
}

type holdingsFile struct {
	Currency string    `yaml:"currency"`
	Assets   []holding `yaml:"assets"`
}

// holding is one entry of the holdings file. Numbers are kept as written and
// parsed as decimals.
type holding struct {
	Kind        string `yaml:"kind"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
	Address     string `yaml:"address"`
	Weight      string `yaml:"weight"`
	Unit        string `yaml:"unit"`
	Fineness    string `yaml:"fineness"`
	Quantity    string `yaml:"quantity"`
}

// DecodeHoldings reads a YAML holdings file. Every invalid entry is reported.
func DecodeHoldings(r io.Reader) (*Holdings, error) {
	var file holdingsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("cannot decode holdings: %w", err)
	}

	h := &Holdings{Currency: strings.ToUpper(file.Currency)}
	if h.Currency == "" {
		h.Currency = DefaultCurrency
	}
	var errs []error
	for i, entry := range file.Assets {
		a, err := entry.asset()
		if err != nil {
			errs = append(errs, fmt.Errorf("asset #%d: %w", i+1, err))
			continue
		}
		h.Assets = append(h.Assets, a)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return h, nil
}

func (e holding) asset() (*Asset, error) {
	a := &Asset{
		Kind:        Kind(strings.ToLower(e.Kind)),
		Location:    e.Location,
		Description: e.Description,
		Address:     strings.TrimSpace(e.Address),
	}
	if !a.Kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", e.Kind)
	}
	if a.Kind == Token {
		return nil, errors.New("tokens are discovered on ethereum wallets, they cannot be declared")
	}

	var err error
	if a.Amount, err = parseQuantity(e.Quantity); err != nil {
		return nil, err
	}

	switch a.Kind.Class() {
	case PreciousMetal:
		if a.Address != "" {
			return nil, fmt.Errorf("%s has no address", a.Kind)
		}
		if e.Quantity == "" {
			return nil, fmt.Errorf("%s requires a quantity", a.Kind)
		}
		if e.Weight != "" {
			if a.Weight, err = parseDecimal("weight", e.Weight); err != nil {
				return nil, err
			}
		}
		if !a.Weight.IsPositive() {
			return nil, fmt.Errorf("%s requires a positive weight", a.Kind)
		}
		if a.WeightUnit, err = ParseWeightUnit(e.Unit); err != nil {
			return nil, err
		}
		a.Fineness = decimal.NewFromInt(1)
		if e.Fineness != "" {
			if a.Fineness, err = parseDecimal("fineness", e.Fineness); err != nil {
				return nil, err
			}
		}
		if !a.Fineness.IsPositive() || a.Fineness.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("fineness %v is not in ]0, 1]", a.Fineness)
		}
	case CryptoCurrency:
		if e.Weight != "" || e.Unit != "" || e.Fineness != "" {
			return nil, fmt.Errorf("%s has no weight, unit nor fineness", a.Kind)
		}
		if a.Address == "" && e.Quantity == "" {
			return nil, fmt.Errorf("%s requires an address or a quantity", a.Kind)
		}
		if a.Address != "" && e.Quantity != "" {
			return nil, fmt.Errorf("%s requires an address or a quantity, not both", a.Kind)
		}
	}
	return a, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

func parseQuantity(s string) (Quantity, error) {
	if s == "" {
		return Quantity{}, nil
	}
	d, err := parseDecimal("quantity", s)
	if err != nil {
		return Quantity{}, err
	}
	if d.IsNegative() {
		return Quantity{}, fmt.Errorf("negative quantity %v", d)
	}
	return Q(d), nil
}

// Sync applies to c the changes from the assets prev to the assets next, as
// decoded from two versions of the same holdings file, and returns the assets
// now in c. Entries are matched by position: a changed entry is replaced, the
// others keep their current instance and values.
func Sync(c *Collection, prev, next []*Asset) []*Asset {
	live := make([]*Asset, 0, len(next))
	var added []*Asset
	for i, a := range next {
		switch {
		case i >= len(prev):
			added = append(added, a)
		case prev[i].Identity() == a.Identity():
			a = prev[i]
		default:
			c.Replace(prev[i], a)
		}
		live = append(live, a)
	}
	for _, a := range prev[min(len(prev), len(next)):] {
		c.Delete(a)
	}
	if len(added) > 0 {
		c.Add(added...)
	}
	return live
}
