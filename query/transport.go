package query

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"
)

type revalidateKey struct{}

// withRevalidate marks requests whose response must come from the network. The
// response still replaces the one on disk.
func withRevalidate(ctx context.Context) context.Context {
	return context.WithValue(ctx, revalidateKey{}, true)
}

func revalidate(ctx context.Context) bool {
	v, _ := ctx.Value(revalidateKey{}).(bool)
	return v
}

// diskCache keeps successful GET responses on disk for the rest of the day.
type diskCache struct {
	base  http.RoundTripper
	dir   string
	today func() time.Time
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first, unless the request must be revalidated, otherwise it
// proceeds with the actual HTTP request and stores the response if it is
// successful.
func (c *diskCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if req.Method != http.MethodGet {
		return c.base.RoundTrip(req)
	}
	// the day is part of the key, so entries expire every day.
	var h bytes.Buffer
	req.Header.Write(&h)
	key := fmt.Sprintf("%s %s %s %q", c.today().Format(time.DateOnly), req.Method, req.URL.String(), h.String())
	key = fmt.Sprintf("nw-%x", sha1.Sum([]byte(key)))

	if !revalidate(req.Context()) {
		cachedResp, err := c.get(key, req)
		if err == nil { // Cache hit
			return cachedResp, nil
		}
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}

	if err := c.put(key, resp); err != nil {
		log.Printf("cache write err (ignored): %v\n", err)
	}
	return resp, nil
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (resp *http.Response, err error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk. DumpResponse leaves resp.Body readable.
func (c *diskCache) put(key string, resp *http.Response) (err error) {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}

// NewDailyClient returns an http.Client that keeps successful GET responses in
// dir until the end of the day. An empty dir means os.TempDir(). Under a Cache,
// the disk is only read until the first Cache.Clear.
func NewDailyClient(dir string) *http.Client {
	if dir == "" {
		dir = os.TempDir()
	}
	client := new(http.Client)
	client.Transport = &diskCache{base: http.DefaultTransport, dir: dir, today: time.Now}
	return client
}
