package helpers

import (
	"fmt"
	"html/template"
)

// DefaultKey is the option that marks an argument as optional.
const DefaultKey = "default"

// Argument renders one entry of an endpoint's argument list.
//
// An argument is required unless one of the options maps contains DefaultKey,
// in which case it is rendered as optional together with its default value. Key
// presence decides: a nil default still makes the argument optional and renders
// as an empty default.
//
// The description may be a template.HTML to keep inline markup; plain strings
// are escaped.
func (h *Helpers) Argument(name string, description any, options ...map[string]any) template.HTML {
	marker := "required"
	for _, opts := range options {
		if v, ok := opts[DefaultKey]; ok {
			if v == nil {
				v = ""
			}
			marker = "optional, default=" + fmt.Sprint(v)
			break
		}
	}

	return h.render("argument", struct {
		Name        string
		Marker      string
		Description any
	}{
		Name:        name,
		Marker:      marker,
		Description: description,
	})
}
