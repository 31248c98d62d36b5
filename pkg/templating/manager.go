package templating

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/CTAG07/apidocs/pkg/helpers"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyTemplateName is returned by Execute when no template name is given.
var ErrEmptyTemplateName = errors.New("template name is empty")

const (
	pageSuffix    = ".tmpl.html"
	partialSuffix = ".part.html"
)

// TemplateManager is the central controller for the templating engine.
// It manages the template set, configuration, the markup helpers and the
// function map. It is responsible for loading, parsing, and executing
// templates in a concurrent-safe manner.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger         *slog.Logger
	config         *TemplateConfig
	helpers        *helpers.Helpers
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	templateDir    string
	mu             sync.RWMutex
}

// NewTemplateManager creates, initializes, and returns a new TemplateManager.
// It requires a logger, a configuration, and the path to the data directory,
// which must contain a "templates" subdirectory. It performs an initial Refresh
// to load all templates.
func NewTemplateManager(logger *slog.Logger, config *TemplateConfig, dataDir string) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}

	tm := &TemplateManager{
		logger:      logger,
		templateDir: filepath.Join(dataDir, "templates"),
	}
	if err := tm.applyConfig(config); err != nil {
		return nil, err
	}

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "template_dir", tm.templateDir)
	return tm, nil
}

func (tm *TemplateManager) makeFuncMap() template.FuncMap {
	lower := func(s string) string { return cases.Lower(language.Und).String(s) }
	upper := func(s string) string { return cases.Upper(language.Und).String(s) }

	funcMap := template.FuncMap{
		// Logic & Control (from funcs_logic.go)
		"repeat":  repeat,
		"list":    list,
		"dict":    dict,
		"join":    join,
		"lower":   lower,
		"upper":   upper,
		"rawHTML": rawHTML,

		// Simple (from funcs_simple.go)
		"add":      add,
		"sub":      sub,
		"inc":      inc,
		"dec":      dec,
		"isSet":    isSet,
		"coalesce": coalesce,
	}

	// Markup helpers (from package helpers)
	for name, fn := range tm.helpers.FuncMap() {
		funcMap[name] = fn
	}
	return funcMap
}

// applyConfig swaps in a new configuration and rebuilds everything derived
// from it. The caller must hold the write lock or own tm exclusively.
func (tm *TemplateManager) applyConfig(config *TemplateConfig) error {
	h, err := helpers.New(config.Site)
	if err != nil {
		return fmt.Errorf("failed to build markup helpers: %w", err)
	}
	tm.config = config
	tm.helpers = h
	tm.funcMap = tm.makeFuncMap()
	return nil
}

// SetConfig applies a new configuration to the TemplateManager. The markup
// helpers and function map are rebuilt from the new site; call Refresh
// afterwards so that the templates are reparsed against them. The old
// configuration stays in place if the new one is invalid.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.applyConfig(config)
}

// Refresh reloads all templates from the filesystem. This allows for
// updates to pages and partials without restarting the application.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	filePattern := filepath.Join(tm.templateDir, "*"+pageSuffix)
	tm.logger.Debug("Loading page files...", "pattern", filePattern)

	parsedFiles, err := template.New("").Funcs(tm.funcMap).ParseGlob(filePattern)
	var names []string
	if err != nil {
		if !strings.Contains(err.Error(), "pattern matches no files") {
			tm.logger.Error("failed to parse page files", "error", err)
			return fmt.Errorf("failed to parse pages: %w", err)
		}
		// No pages, so we have to create the object without any
		parsedFiles = template.New("").Funcs(tm.funcMap)
		names = []string{}
	} else {
		for _, t := range parsedFiles.Templates() {
			// The root template has no name and {{define}} blocks aren't pages.
			if strings.HasSuffix(t.Name(), pageSuffix) {
				names = append(names, t.Name())
			}
		}
	}
	slices.Sort(names)

	filePattern = filepath.Join(tm.templateDir, "*"+partialSuffix)
	tm.logger.Debug("Loading partial files...", "pattern", filePattern)

	withPartials, err := parsedFiles.ParseGlob(filePattern)
	if err != nil {
		if !strings.Contains(err.Error(), "pattern matches no files") {
			tm.logger.Error("failed to parse partial files", "error", err)
			return fmt.Errorf("failed to parse partials: %w", err)
		}
		withPartials = parsedFiles
	}

	if len(names) == 0 {
		tm.logger.Warn("No page files found", "dir", tm.templateDir)
	}

	// Create a clean clone for string executions before anything is executed.
	clean, err := withPartials.Clone()
	if err != nil {
		tm.logger.Error("failed to create a clean clone of templates", "error", err)
		return fmt.Errorf("failed to clone templates: %w", err)
	}

	tm.templates = withPartials
	tm.cleanTemplates = clean
	tm.templateNames = names
	tm.logger.Info("Loaded page and partial files", "pages", len(names), "count", len(withPartials.Templates())-1) // Subtract one for the root template
	return nil
}

// Execute renders a specific template by name, writing the output to the provided io.Writer.
// The `data` argument is passed to the template as dot.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	if name == "" {
		return ErrEmptyTemplateName
	}
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templates.ExecuteTemplate(w, name, data)
}

// ExecuteTemplateString parses and executes a raw template string using the manager's function map
// and partials. This is ideal for testing or previewing templates without saving them to disk.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	// Clone the clean, unexecuted template set; html/template refuses to parse
	// into a set that has already been executed.
	tempSet, err := tm.cleanTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}

	t, err := tempSet.New("inline").Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}

	return t.Execute(w, data)
}

// GetPageNames returns the pages a build should render: the enabled templates
// that exist, or every loaded page when none are configured. Enabled templates
// that don't exist are logged and skipped.
func (tm *TemplateManager) GetPageNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if len(tm.config.EnabledTemplates) == 0 {
		return slices.Clone(tm.templateNames)
	}

	names := make([]string, 0, len(tm.config.EnabledTemplates))
	for _, name := range tm.config.EnabledTemplates {
		if !slices.Contains(tm.templateNames, name) {
			tm.logger.Warn("Enabled template not found, skipping", "template", name)
			continue
		}
		names = append(names, name)
	}
	return names
}

// GetTemplateNames returns a slice of the loaded template names, partials
// included.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var names []string
	for _, t := range tm.templates.Templates() {
		if strings.HasSuffix(t.Name(), ".html") {
			names = append(names, t.Name())
		}
	}
	slices.Sort(names)
	return names
}

// GetConfig returns a copy of the current configuration.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetTemplateDir returns the template dir that the TemplateManager uses.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}

// Helpers returns the markup helpers currently bound to the templates.
func (tm *TemplateManager) Helpers() *helpers.Helpers {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.helpers
}
