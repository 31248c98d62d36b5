package helpers

import (
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const fragmentTemplates = `
{{- define "code_tabs" -}}
<ul class="nav nav-tabs" id="{{.Section}}-tabs">
{{- range .Tabs}} <li class="{{.Class}}"> <a data-toggle="tab" class="lang-tab {{.ID}}-lang-tab" lang="{{.ID}}" href="#{{$.Section}}-{{.ID}}">{{.Name}}</a> </li>{{end -}}
{{" "}}</ul>
{{- end -}}

{{- define "argument" -}}
<li>
  <strong>{{.Name}} [{{.Marker}}]</strong>
  <div>{{.Description}}</div>
</li>
{{- end -}}
`

// Helpers renders markup fragments for a single Site. The zero value is not
// usable; create one with New.
type Helpers struct {
	site      Site
	tabs      []languageTab
	fragments *template.Template
}

// New validates site and returns Helpers bound to a private copy of it.
func New(site Site) (*Helpers, error) {
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site: %w", err)
	}
	site = site.clone()

	fragments, err := template.New("helpers").Parse(fragmentTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment templates: %w", err)
	}

	h := &Helpers{
		site:      site,
		fragments: fragments,
	}

	// The language set never changes, so the tab ids are derived once.
	lower := cases.Lower(language.Und)
	h.tabs = make([]languageTab, len(site.Languages))
	for i, lang := range site.Languages {
		h.tabs[i] = languageTab{
			Name:  lang,
			ID:    lower.String(lang),
			Class: h.LanguageClass(lang),
		}
	}
	return h, nil
}

// MustNew is like New but panics if the site is invalid.
func MustNew(site Site) *Helpers {
	h, err := New(site)
	if err != nil {
		panic(err)
	}
	return h
}

// Site returns a copy of the site the helpers were built from.
func (h *Helpers) Site() Site {
	return h.site.clone()
}

// FuncMap returns the helpers under the names page templates call them by.
func (h *Helpers) FuncMap() template.FuncMap {
	return template.FuncMap{
		"language_class": h.LanguageClass,
		"languageClass":  h.LanguageClass,
		"code_tabs":      h.CodeTabs,
		"codeTabs":       h.CodeTabs,
		"argument":       h.Argument,
		"status_code":    h.StatusLabel,
		"statusCode":     h.StatusLabel,
		"status_codes":   h.StatusCodes,
		"languages":      h.Languages,
	}
}

// render executes one of the fragment templates. The fragments are fixed and
// only ever see plain values, so an execution error is a programming error; the
// panic is turned into a template error by text/template when called from a page.
func (h *Helpers) render(name string, data any) template.HTML {
	var builder strings.Builder
	if err := h.fragments.ExecuteTemplate(&builder, name, data); err != nil {
		panic(fmt.Sprintf("helpers: rendering %s: %v", name, err))
	}
	return template.HTML(builder.String())
}
