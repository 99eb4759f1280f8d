// Package lang loads the user-facing reply strings from a YAML catalog
// so wording can be adjusted without a rebuild.
package lang

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	messages map[string]string
}

// Load parses the catalog file. The file maps an active_language key to
// the language block to use, with "en" as the fallback block.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lang: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lang: parse %s: %w", path, err)
	}

	active := "en"
	if v, ok := raw["active_language"].(string); ok && v != "" {
		active = v
	}

	block, ok := raw[active].(map[string]any)
	if !ok {
		block, ok = raw["en"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("lang: no %q or \"en\" block in %s", active, path)
		}
		slog.Warn("Language block not found, falling back to en", "requested", active)
		active = "en"
	}

	m := make(map[string]string, len(block))
	for k, v := range block {
		if s, ok := v.(string); ok {
			m[k] = s
		}
	}

	slog.Info("Loaded reply catalog", "language", active, "keys", len(m))
	return &Catalog{messages: m}, nil
}

// T resolves a reply string, interpolating {name} placeholders from the
// given name/value pairs. Unknown keys come back braced so they are easy
// to spot in a live channel.
func (c *Catalog) T(key string, pairs ...string) string {
	s, ok := c.messages[key]
	if !ok {
		return "{" + key + "}"
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[i]+"}", pairs[i+1])
	}
	return s
}
