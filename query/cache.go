// Package query fetches and memoizes JSON responses from third-party services.
//
// A Cache guarantees at most one outbound request per request identity: every
// caller asking for the same Request shares the same outcome, success or
// failure, until the Cache is cleared.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/etnz/networth/taskqueue"
)

// Request describes an idempotent HTTP query.
type Request struct {
	Method string // GET if empty
	URL    string
	Body   string
	Header http.Header

	// Tolerate lists the non 2xx status codes whose body is still decoded.
	Tolerate []int
	// ServerError extracts an error message from a well-formed body. An empty
	// message means the body reports no error.
	ServerError func(body any) string
	// Throttle, possibly nil, spaces out the requests actually sent to the
	// service. Responses already known never wait for it.
	Throttle *taskqueue.Throttle
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// key returns the request identity: method, URL, body and headers. The
// expected shape is part of it so that two decoders never share an entry.
func (r Request) key(shape reflect.Type) string {
	var h strings.Builder
	r.Header.Write(&h) // sorted by key
	return fmt.Sprintf("%s %s %s %q %s", r.method(), r.URL, r.Body, h.String(), shape)
}

// Validator is implemented by response types that check their own content once
// decoded.
type Validator interface {
	Validate() error
}

// entry is one in-flight or completed request.
type entry struct {
	done  chan struct{} // closed once value and err are set
	value any
	err   error
}

// Cache deduplicates and memoizes requests. Its zero value is not usable, use
// NewCache.
type Cache struct {
	client *http.Client

	mu      sync.Mutex
	entries map[string]*entry
	cleared bool // requests must reach the network again
}

// NewCache returns an empty cache issuing requests with client, or
// http.DefaultClient if client is nil.
func NewCache(client *http.Client) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{client: client, entries: make(map[string]*entry)}
}

// Clear forgets every entry. Requests already dispatched complete normally but
// their outcome is no longer shared with later callers. Requests issued after
// Clear also skip the daily disk cache, see NewDailyClient.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.cleared = true
}

// Len returns the number of known request identities.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Get returns the response to req decoded as T. The first caller for a given
// request identity triggers the request, every other caller waits for its
// outcome. ctx only bounds the wait: the request itself is never cancelled so
// that its outcome can be shared.
func Get[T any](ctx context.Context, c *Cache, req Request) (T, error) {
	var zero T
	shape := reflect.TypeFor[T]()
	key := req.key(shape)

	c.mu.Lock()
	e, found := c.entries[key]
	if !found {
		e = &entry{done: make(chan struct{})}
		c.entries[key] = e
	}
	cleared := c.cleared
	c.mu.Unlock()

	if !found {
		fctx := context.WithoutCancel(ctx)
		if cleared {
			fctx = withRevalidate(fctx)
		}
		go func() {
			defer close(e.done)
			e.value, e.err = taskqueue.Do(fctx, req.Throttle, func(ctx context.Context) (T, error) {
				return fetch[T](ctx, c.client, req)
			})
		}()
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if e.err != nil {
		return zero, e.err
	}
	return e.value.(T), nil
}

// fetch performs the request and classifies every failure into an *Error.
func fetch[T any](ctx context.Context, client *http.Client, req Request) (T, error) {
	var value T

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	r, err := http.NewRequestWithContext(ctx, req.method(), req.URL, body)
	if err != nil {
		return value, newError(Network, err, "cannot create request for %s: %v", req.URL, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}

	resp, err := client.Do(r)
	if err != nil {
		return value, newError(Network, err, "cannot http %s %s: %v", r.Method, hostPath(r), err)
	}
	defer resp.Body.Close()
	log.Printf("%v %v %v", r.Method, hostPath(r), resp.Status)

	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && !slices.Contains(req.Tolerate, resp.StatusCode) {
		return value, newError(HTTPStatus, nil, "cannot http %s %s: %v", r.Method, hostPath(r), resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return value, newError(Network, err, "cannot read response from %s: %v", hostPath(r), err)
	}
	raw := buf.Bytes()

	// Decode generically first: it separates bodies that are not JSON at all
	// from bodies of the wrong shape, and feeds the server error extractor.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return value, newError(MalformedBody, err, "malformed response from %s: %v", hostPath(r), err)
	}
	if req.ServerError != nil {
		if msg := req.ServerError(generic); msg != "" {
			return value, newError(Application, nil, "%s reported: %s", r.URL.Host, msg)
		}
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return value, newError(Validation, err, "unexpected response from %s: %v", hostPath(r), err)
	}
	if v, ok := any(&value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return value, newError(Validation, err, "invalid response from %s: %v", hostPath(r), err)
		}
	} else if v, ok := any(value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return value, newError(Validation, err, "invalid response from %s: %v", hostPath(r), err)
		}
	}
	return value, nil
}

func hostPath(r *http.Request) string { return r.URL.Host + r.URL.Path }
