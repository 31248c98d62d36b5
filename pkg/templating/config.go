package templating

import "github.com/CTAG07/apidocs/pkg/helpers"

// TemplateConfig holds all configuration options for the templating engine.
type TemplateConfig struct {
	// EnabledTemplates limits which pages are built. When empty, every
	// "*.tmpl.html" file in the template directory is a page.
	EnabledTemplates []string `json:"enabled_templates" yaml:"enabled_templates"`

	// Site is the status table and language set the markup helpers render from.
	Site helpers.Site `json:"site" yaml:"site"`
}

// DefaultConfig returns a TemplateConfig that builds every page with the
// default site.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		EnabledTemplates: []string{},
		Site:             helpers.DefaultSite(),
	}
}
