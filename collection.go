package networth

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/etnz/networth/taskqueue"
)

// DefaultPollInterval is the longest time groups go without being rebuilt
// while queries are in flight.
const DefaultPollInterval = time.Second

// Collection is a set of assets continuously valued from their data sources.
//
// Add, Delete and Replace change the set immediately and queue an update. Only
// one update runs at a time: it rebuilds the groups, queries every new bundle
// concurrently and rebuilds the groups again each time a bundle completes, or
// every PollInterval, until none is in flight. Methods are safe for concurrent
// use and never fail: query errors are reported as asset hints.
type Collection struct {
	PollInterval time.Duration

	svc   *Services
	queue taskqueue.Queue

	mu       sync.Mutex
	ordering Ordering
	bundles  []*Bundle
	pending  []*Bundle // bundles to query on the next update
	groups   map[string]*Group
	grouped  []*Group
}

// NewCollection returns an empty collection valued with services s and
// displayed with ordering o, FieldOrdering{} if nil.
func NewCollection(s *Services, o Ordering) *Collection {
	if o == nil {
		o = FieldOrdering{}
	}
	return &Collection{
		PollInterval: DefaultPollInterval,
		svc:          s,
		ordering:     o,
		groups:       make(map[string]*Group),
	}
}

// Add adds primary assets to the collection. Assets added together are queried
// in the same update. It panics if an asset cannot be a primary asset.
func (c *Collection) Add(assets ...*Asset) {
	bundles := make([]*Bundle, 0, len(assets))
	for _, a := range assets {
		bundles = append(bundles, newBundle(a, c.svc))
	}
	c.mu.Lock()
	c.bundles = append(c.bundles, bundles...)
	c.pending = append(c.pending, bundles...)
	c.mu.Unlock()
	c.schedule()
}

// Delete removes a from the collection. Deleting a primary asset removes every
// asset of its bundle. Deleting an unknown asset does nothing.
func (c *Collection) Delete(a *Asset) {
	c.mu.Lock()
	i := c.indexOf(a)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	b := c.bundles[i]
	if b.DeleteAsset(a) {
		c.bundles = slices.Delete(c.bundles, i, i+1)
		c.pending = slices.DeleteFunc(c.pending, func(p *Bundle) bool { return p == b })
	}
	c.mu.Unlock()
	c.schedule()
}

// Replace replaces the primary asset old, and its whole bundle, with a new one
// at the same position. It panics if old is not a primary asset of the
// collection.
func (c *Collection) Replace(old, next *Asset) {
	b := newBundle(next, c.svc)
	c.mu.Lock()
	i := c.indexOf(old)
	if i < 0 || c.bundles[i].Primary() != old {
		c.mu.Unlock()
		panic(fmt.Sprintf("cannot replace %s: not a primary asset of the collection", old.Name()))
	}
	prev := c.bundles[i]
	c.bundles[i] = b
	c.pending = slices.DeleteFunc(c.pending, func(p *Bundle) bool { return p == prev })
	c.pending = append(c.pending, b)
	c.mu.Unlock()
	c.schedule()
}

// Refresh forgets every cached response and queries every bundle again.
// Requests already in flight complete normally.
func (c *Collection) Refresh() {
	if c.svc.Cache != nil {
		c.svc.Cache.Clear()
	}
	c.mu.Lock()
	for _, b := range c.bundles {
		if !slices.Contains(c.pending, b) {
			c.pending = append(c.pending, b)
		}
	}
	c.mu.Unlock()
	c.schedule()
}

// SetOrdering changes how assets are grouped and sorted.
func (c *Collection) SetOrdering(o Ordering) {
	c.mu.Lock()
	c.ordering = o
	c.mu.Unlock()
	c.schedule()
}

// SetExpanded sets the Expanded flag of the group key, if it exists.
func (c *Collection) SetExpanded(key string, expanded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.groups[key]; ok {
		g.Expanded = expanded
	}
}

// Assets returns every asset of the collection, in bundle order.
func (c *Collection) Assets() []*Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	var assets []*Asset
	for _, b := range c.bundles {
		assets = append(assets, b.Assets()...)
	}
	return assets
}

// Grouped returns a snapshot of the groups as of the last rebuild, sorted.
func (c *Collection) Grouped() []*Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	groups := make([]*Group, len(c.grouped))
	for i, g := range c.grouped {
		cp := *g
		cp.Assets = slices.Clone(g.Assets)
		groups[i] = &cp
	}
	return groups
}

// GrandTotal returns the total value of the collection, false if the value of
// any asset is still unknown. An empty collection is worth zero.
func (c *Collection) GrandTotal() (Money, bool) {
	total := M(0, c.svc.Currency)
	for _, a := range c.Assets() {
		v, ok := a.TotalValue()
		if !ok {
			return Money{}, false
		}
		total = total.Add(v)
	}
	return total, true
}

// Idle returns a channel closed once every update queued so far has completed.
func (c *Collection) Idle() <-chan struct{} { return c.queue.Idle() }

// Wait waits for Idle, or for ctx to be done.
func (c *Collection) Wait(ctx context.Context) error { return c.queue.Wait(ctx) }

func (c *Collection) indexOf(a *Asset) int {
	return slices.IndexFunc(c.bundles, func(b *Bundle) bool { return b.contains(a) })
}

func (c *Collection) schedule() { c.queue.Queue(c.update) }

// update queries the pending bundles, rebuilding the groups as results arrive.
func (c *Collection) update() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.regroup()
	if len(pending) == 0 {
		return nil
	}

	start := time.Now()
	done := make(chan struct{}, len(pending))
	for _, b := range pending {
		go func() {
			defer func() { done <- struct{}{} }()
			b.QueryData(context.Background())
		}()
	}

	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for outstanding := len(pending); outstanding > 0; {
		select {
		case <-done:
			outstanding--
		case <-timer.C:
		}
		timer.Reset(interval)
		c.regroup()
	}
	log.Printf("updated %d bundles in %v", len(pending), time.Since(start).Round(time.Millisecond))
	return nil
}

// regroup rebuilds the groups from the current assets, reusing the group
// instances of known keys.
func (c *Collection) regroup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make(map[string]*Group)
	var grouped []*Group
	for _, b := range c.bundles {
		for _, a := range b.Assets() {
			key := c.ordering.GroupKey(a)
			g, ok := groups[key]
			if !ok {
				g, ok = c.groups[key]
				if !ok {
					g = &Group{Key: key}
				}
				g.Assets = nil
				groups[key] = g
				grouped = append(grouped, g)
			}
			g.Assets = append(g.Assets, a)
		}
	}
	for _, g := range grouped {
		slices.SortStableFunc(g.Assets, c.ordering.CompareAssets)
		g.summarize(c.svc.Currency)
	}
	slices.SortStableFunc(grouped, c.ordering.CompareGroups)
	c.groups = groups
	c.grouped = grouped
}
