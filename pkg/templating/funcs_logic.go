package templating

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// repeat returns a slice of integers from 0 to count-1.
func repeat(count int) []int {
	if count < 0 {
		return []int{}
	}
	s := make([]int, count)
	for i := range s {
		s[i] = i
	}
	return s
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}

// dict builds a map from alternating keys and values. It is mostly used to
// pass options to the argument helper:
//
//	{{argument "limit" "Max results" (dict "default" 10)}}
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict requires an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %d is %T, not string", i/2, pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// join joins elems with sep, with the separator first so it pipes well:
//
//	{{languages | join ", "}}
func join(sep string, elems []string) string {
	return strings.Join(elems, sep)
}

// rawHTML marks s as trusted markup so html/template does not escape it.
// Only use it on content that is part of the site sources.
func rawHTML(s string) template.HTML {
	return template.HTML(s)
}
