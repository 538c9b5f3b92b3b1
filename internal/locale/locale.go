// Package locale resolves message keys to user-facing text.
package locale

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// placeholderRegex matches named placeholders in the form %{name}.
var placeholderRegex = regexp.MustCompile(`%\{([^}]+)\}`)

// Catalog holds flattened message templates keyed by their dot path, e.g. "watchlist.removed".
// It is read-only after construction.
type Catalog struct {
	messages map[string]string
	logger   zerolog.Logger
}

// New loads the embedded messages and, when overrideFile is set, merges the file on top.
func New(overrideFile string, logger *zerolog.Logger) (*Catalog, error) {
	log := logger.With().Str("component", "locale").Logger()

	messages := make(map[string]string)
	if err := parseInto(messages, defaultMessages); err != nil {
		return nil, fmt.Errorf("locale: failed to parse default messages: %w", err)
	}

	if overrideFile != "" {
		content, err := os.ReadFile(overrideFile)
		if err != nil {
			return nil, fmt.Errorf("locale: failed to read %s: %w", overrideFile, err)
		}
		if err := parseInto(messages, content); err != nil {
			return nil, fmt.Errorf("locale: failed to parse %s: %w", overrideFile, err)
		}
		log.Info().Str("file", overrideFile).Msg("message overrides loaded")
	}

	return &Catalog{messages: messages, logger: log}, nil
}

// Has reports whether a template exists for key.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[key]
	return ok
}

// Render resolves key and substitutes every placeholder. Placeholders without
// a value are left as written. An unknown key renders as the key itself.
func (c *Catalog) Render(key string, placeholders map[string]string) string {
	tmpl, ok := c.messages[key]
	if !ok {
		c.logger.Debug().Str("key", key).Msg("missing message")
		return key
	}
	if len(placeholders) == 0 {
		return tmpl
	}
	return placeholderRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := placeholders[name]; ok {
			return val
		}
		return match
	})
}

func parseInto(dst map[string]string, content []byte) error {
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return err
	}
	flatten(dst, "", data)
	return nil
}

func flatten(dst map[string]string, prefix string, node map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(dst, key, val)
		case nil:
		default:
			dst[key] = fmt.Sprint(val)
		}
	}
}
