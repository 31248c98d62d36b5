package helpers

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Site holds the static configuration shared by every helper call.
type Site struct {
	// StatusCodes maps a numeric HTTP status code to the label rendered for it.
	StatusCodes map[int]string `json:"status_codes" yaml:"status_codes"`

	// Languages is the ordered set of languages code samples are written in.
	// Tabs are rendered in this order.
	Languages []string `json:"languages" yaml:"languages"`

	// ActiveLanguage is the language whose tab is selected when a page loads.
	// It must be one of Languages.
	ActiveLanguage string `json:"active_language" yaml:"active_language"`
}

// DefaultSite returns the status table and language set used by the API docs.
func DefaultSite() Site {
	return Site{
		StatusCodes: map[int]string{
			200: "200 OK",
			201: "201 Created",
			202: "202 Accepted",
			204: "204 No Content",
			301: "301 Moved Permanently",
			304: "304 Not Modified",
			401: "401 Unauthorized",
			403: "403 Forbidden",
			404: "404 Not Found",
			409: "409 Conflict",
			422: "422 Unprocessable Entity",
			500: "500 Server Error",
		},
		Languages:      []string{"Python", "Ruby"},
		ActiveLanguage: "Python",
	}
}

var (
	ErrNoLanguages    = errors.New("site has no languages")
	ErrUnknownDefault = errors.New("active language is not in the language set")
)

// Validate reports whether the site can back a Helpers value.
func (s Site) Validate() error {
	if len(s.Languages) == 0 {
		return ErrNoLanguages
	}
	seen := make(map[string]struct{}, len(s.Languages))
	for _, lang := range s.Languages {
		if lang == "" {
			return errors.New("site has an empty language name")
		}
		if _, dup := seen[lang]; dup {
			return fmt.Errorf("language %q listed more than once", lang)
		}
		seen[lang] = struct{}{}
	}
	if _, ok := seen[s.ActiveLanguage]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDefault, s.ActiveLanguage)
	}
	return nil
}

// clone returns a deep copy so later edits to the caller's maps and slices
// can't leak into a Helpers value.
func (s Site) clone() Site {
	return Site{
		StatusCodes:    maps.Clone(s.StatusCodes),
		Languages:      slices.Clone(s.Languages),
		ActiveLanguage: s.ActiveLanguage,
	}
}
