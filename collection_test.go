package networth

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// wait waits for c to be idle, failing the test after a second.
func wait(t *testing.T, c *Collection) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("collection never got idle: %v", err)
	}
}

func keys(groups []*Group) []string {
	var k []string
	for _, g := range groups {
		k = append(k, g.Key)
	}
	return k
}

func btcServices(balances fakeBalances) *Services {
	return &Services{Currency: "EUR", Prices: fakePrices{"BTC": EUR(10)}, Balances: balances}
}

func TestCollection_Empty(t *testing.T) {
	c := NewCollection(&Services{Currency: "EUR"}, nil)

	select {
	case <-c.Idle():
	default:
		t.Error("an empty collection must be idle")
	}
	if got := c.Grouped(); len(got) != 0 {
		t.Errorf("Grouped() = %v, want none", keys(got))
	}
	if total, ok := c.GrandTotal(); !ok || !total.Equal(EUR(0)) {
		t.Errorf("GrandTotal() = %v, %v, want %v", total, ok, EUR(0))
	}
}

func TestCollection_PartialFailure(t *testing.T) {
	c := NewCollection(btcServices(fakeBalances{"good": Q(3)}), FieldOrdering{GroupBy: ByLocation})
	x := &Asset{Kind: Bitcoin, Location: "X", Address: "bad"}
	y := &Asset{Kind: Bitcoin, Location: "Y", Address: "good"}
	c.Add(x)
	c.Add(y)
	wait(t, c)

	if v, ok := y.TotalValue(); !ok || !v.Equal(EUR(30)) {
		t.Errorf("Y value = %v, %v, want %v", v, ok, EUR(30))
	}
	if x.QuantityHint() == "" {
		t.Error("X has no hint despite its failure")
	}
	if _, ok := c.GrandTotal(); ok {
		t.Error("GrandTotal() is known while X is not")
	}
	groups := c.Grouped()
	if diff := cmp.Diff([]string{"X", "Y"}, keys(groups)); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if groups[0].Known || !groups[1].Known {
		t.Errorf("group X known = %v, group Y known = %v, want false, true", groups[0].Known, groups[1].Known)
	}
}

// gatedBalances blocks the address "slow" until release is closed.
type gatedBalances struct {
	fakeBalances
	release chan struct{}
}

func (g gatedBalances) Balance(ctx context.Context, symbol, address string) (Quantity, error) {
	if address == "slow" {
		<-g.release
	}
	return g.fakeBalances.Balance(ctx, symbol, address)
}

func TestCollection_IncrementalRegroup(t *testing.T) {
	balances := gatedBalances{fakeBalances{"slow": Q(1), "fast": Q(2)}, make(chan struct{})}
	c := NewCollection(&Services{Currency: "EUR", Prices: fakePrices{"BTC": EUR(10)}, Balances: balances}, FieldOrdering{GroupBy: ByLocation})
	c.PollInterval = 10 * time.Millisecond
	c.Add(
		&Asset{Kind: Bitcoin, Location: "slow", Address: "slow"},
		&Asset{Kind: Bitcoin, Location: "fast", Address: "fast"},
	)

	deadline := time.Now().Add(time.Second)
	for {
		groups := c.Grouped()
		if len(groups) == 2 && groups[0].Key == "fast" && groups[0].Known {
			if groups[1].Known {
				t.Fatal("the slow group is known before its query completed")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("groups never showed the fast result while the slow one was in flight")
		}
		time.Sleep(time.Millisecond)
	}
	select {
	case <-c.Idle():
		t.Fatal("the collection is idle while a query is in flight")
	default:
	}

	close(balances.release)
	wait(t, c)
	if total, ok := c.GrandTotal(); !ok || !total.Equal(EUR(30)) {
		t.Errorf("GrandTotal() = %v, %v, want %v", total, ok, EUR(30))
	}
}

func TestCollection_ExpandedSurvivesRegroup(t *testing.T) {
	c := NewCollection(btcServices(fakeBalances{"a": Q(1), "b": Q(1)}), FieldOrdering{GroupBy: ByLocation})
	safe := &Asset{Kind: Bitcoin, Location: "Safe", Address: "a"}
	c.Add(safe)
	wait(t, c)
	c.SetExpanded("Safe", true)

	bank := &Asset{Kind: Bitcoin, Location: "Bank", Address: "b"}
	c.Add(bank)
	wait(t, c)
	groups := c.Grouped()
	if diff := cmp.Diff([]string{"Bank", "Safe"}, keys(groups)); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if groups[0].Expanded || !groups[1].Expanded {
		t.Errorf("Bank expanded = %v, Safe expanded = %v, want false, true", groups[0].Expanded, groups[1].Expanded)
	}

	c.Delete(safe)
	wait(t, c)
	if diff := cmp.Diff([]string{"Bank"}, keys(c.Grouped())); diff != "" {
		t.Errorf("extinct group kept (-want +got):\n%s", diff)
	}
}

func TestCollection_Replace(t *testing.T) {
	c := NewCollection(btcServices(fakeBalances{"a": Q(1), "b": Q(5)}), nil)
	first := &Asset{Kind: Bitcoin, Location: "L", Address: "a"}
	second := &Asset{Kind: Bitcoin, Location: "M", Address: "a"}
	c.Add(first)
	c.Add(second)
	wait(t, c)

	edited := &Asset{Kind: Bitcoin, Location: "L", Address: "b"}
	c.Replace(first, edited)
	wait(t, c)
	if got := c.Assets(); len(got) != 2 || got[0] != edited || got[1] != second {
		t.Fatalf("Assets() after Replace = %v, want the edited asset in place", got)
	}
	if total, ok := c.GrandTotal(); !ok || !total.Equal(EUR(60)) {
		t.Errorf("GrandTotal() = %v, %v, want %v", total, ok, EUR(60))
	}
}

func TestCollection_Replace_Unknown(t *testing.T) {
	c := NewCollection(btcServices(nil), nil)
	defer func() {
		if recover() == nil {
			t.Error("Replace() of an unknown asset did not panic")
		}
	}()
	c.Replace(&Asset{Kind: Bitcoin}, &Asset{Kind: Bitcoin})
}

func TestCollection_DeleteToken(t *testing.T) {
	w := &fakeWallets{wallet: Wallet{Balance: Q(1), Tokens: []TokenBalance{token("A", 1, 1), token("B", 1, 1)}}}
	c := NewCollection(ethServices(w), nil)
	c.Add(&Asset{Kind: Ethereum, Address: "0xabc"})
	wait(t, c)

	assets := c.Assets()
	if diff := cmp.Diff([]string{"ethereum", "A", "B"}, symbols(assets)); diff != "" {
		t.Fatalf("assets mismatch (-want +got):\n%s", diff)
	}
	c.Delete(assets[1])
	c.Refresh()
	wait(t, c)
	if diff := cmp.Diff([]string{"ethereum", "B"}, symbols(c.Assets())); diff != "" {
		t.Errorf("deleted token came back after refresh (-want +got):\n%s", diff)
	}
}

func TestCollection_SetOrdering(t *testing.T) {
	c := NewCollection(btcServices(fakeBalances{"a": Q(1), "b": Q(5)}), FieldOrdering{GroupBy: ByKind})
	c.Add(&Asset{Kind: Bitcoin, Location: "L", Address: "a"})
	c.Add(&Asset{Kind: Bitcoin, Location: "M", Address: "b"})
	wait(t, c)
	if diff := cmp.Diff([]string{"bitcoin"}, keys(c.Grouped())); diff != "" {
		t.Fatalf("groups by kind mismatch (-want +got):\n%s", diff)
	}

	c.SetOrdering(FieldOrdering{GroupBy: ByLocation, SortBy: ByValue, Descending: true})
	wait(t, c)
	if diff := cmp.Diff([]string{"M", "L"}, keys(c.Grouped())); diff != "" {
		t.Errorf("groups by location mismatch (-want +got):\n%s", diff)
	}
}
