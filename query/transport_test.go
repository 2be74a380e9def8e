package query

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDiskCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"rates":{"EUR":0.92}}`)
	}))
	defer srv.Close()

	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	client := &http.Client{Transport: &diskCache{base: http.DefaultTransport, dir: t.TempDir(), today: func() time.Time { return day }}}

	read := func() string {
		t.Helper()
		resp, err := client.Get(srv.URL + "/latest/USD")
		if err != nil {
			t.Fatalf("Get() unexpected error = %v", err)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("ReadAll() unexpected error = %v", err)
		}
		return string(b)
	}

	first, second := read(), read()
	if first != second {
		t.Errorf("cached body %q differs from %q", second, first)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("got %d requests on the same day, want 1", got)
	}

	day = day.AddDate(0, 0, 1)
	read()
	if got := hits.Load(); got != 2 {
		t.Errorf("got %d requests the next day, want 2", got)
	}
}

func TestDailyClient_Clear(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `{"symbol":"BTC","price":%d}`, n)
	}))
	defer srv.Close()

	c := NewCache(NewDailyClient(t.TempDir()))
	get := func() float64 {
		t.Helper()
		p, err := Get[price](context.Background(), c, Request{URL: srv.URL + "/price/BTC"})
		if err != nil {
			t.Fatalf("Get() unexpected error = %v", err)
		}
		return p.Price
	}

	if got := get(); got != 1 {
		t.Fatalf("first price = %v, want 1", got)
	}
	c.Clear()
	if got := get(); got != 2 {
		t.Errorf("price after Clear() = %v, want a fresh 2", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("got %d requests, want one per Clear()", got)
	}

	// a new process still reads the refreshed response from disk.
	fresh := NewCache(NewDailyClient(c.client.Transport.(*diskCache).dir))
	p, err := Get[price](context.Background(), fresh, Request{URL: srv.URL + "/price/BTC"})
	if err != nil || p.Price != 2 {
		t.Errorf("Get() from disk = %v, %v, want 2", p.Price, err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("got %d requests, want the disk to answer", got)
	}
}
