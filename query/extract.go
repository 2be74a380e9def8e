package query

import (
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// ErrorAt returns a ServerError extractor that reports the first non empty
// value found at one of the jsonpath expressions.
//
//	query.ErrorAt("$.error.message", "$.error")
func ErrorAt(paths ...string) func(body any) string {
	return func(body any) string {
		for _, path := range paths {
			if msg := Lookup(path, body); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// Lookup returns the value at path in a generic JSON value as a string, or "" if
// there is none.
func Lookup(path string, body any) string {
	jval, err := jsonpath.Get(path, body)
	if err != nil {
		return ""
	}
	// because jsonpath is never clear about whether it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return ""
		}
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		// {"error": false} is a common way to say there is none.
		if !v {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(v)
	}
}
