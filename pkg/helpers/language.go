package helpers

import (
	"html/template"
	"slices"
)

type languageTab struct {
	Name  string
	ID    string
	Class string
}

// LanguageClass returns "active" for the site's active language and an empty
// string for anything else.
func (h *Helpers) LanguageClass(language string) string {
	if language == h.site.ActiveLanguage {
		return "active"
	}
	return ""
}

// Languages returns the language set in display order.
func (h *Helpers) Languages() []string {
	return slices.Clone(h.site.Languages)
}

// CodeTabs renders the tab strip that switches the code samples of a page
// section between languages. The list is identified as "<section>-tabs" and each
// tab targets the pane "#<section>-<language>".
func (h *Helpers) CodeTabs(section string) template.HTML {
	return h.render("code_tabs", struct {
		Section string
		Tabs    []languageTab
	}{
		Section: section,
		Tabs:    h.tabs,
	})
}
