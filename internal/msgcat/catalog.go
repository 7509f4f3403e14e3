package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

var ErrMissingKey = errors.New("msgcat: template not found")

// Catalog maps dotted keys to text/template sources. Parsed templates are
// cached on first use.
type Catalog struct {
	mu     sync.RWMutex
	source map[string]string
	parsed map[string]*template.Template
}

// New loads the embedded English catalog, then any *.yaml/*.yml files in
// overrideDir in name order. A key defined by two override files is an error.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{source: make(map[string]string), parsed: make(map[string]*template.Template)}

	raw, err := defaultFiles.ReadFile("messages.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	flat, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	c.merge(flat)

	if strings.TrimSpace(overrideDir) == "" {
		return c, nil
	}
	if err := c.loadDir(overrideDir); err != nil {
		return nil, err
	}
	return c, nil
}

// MustDefault returns the embedded catalog and panics if it cannot parse,
// which only happens when the embedded file itself is broken.
func MustDefault() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read messages dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	owner := make(map[string]string)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, dup := owner[k]; dup {
				return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			owner[k] = name
		}
		c.merge(flat)
	}
	return nil
}

func (c *Catalog) merge(flat map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range flat {
		c.source[k] = v
		delete(c.parsed, k)
	}
}

func flatten(b []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := walk(root, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := walk(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return errors.New("string value without key")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}

// Render executes the template stored under key. Missing data fields fail.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, err := c.template(strings.TrimSpace(key))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return b.String(), nil
}

// Text is Render with a fallback for callers that must always produce text.
func (c *Catalog) Text(key string, data any, fallback string) string {
	s, err := c.Render(key, data)
	if err != nil {
		return fallback
	}
	return s
}

func (c *Catalog) template(key string) (*template.Template, error) {
	c.mu.RLock()
	tpl, ok := c.parsed[key]
	src, known := c.source[key]
	c.mu.RUnlock()
	if ok {
		return tpl, nil
	}
	if !known || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	tpl, err := template.New(key).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	c.mu.Lock()
	c.parsed[key] = tpl
	c.mu.Unlock()
	return tpl, nil
}
