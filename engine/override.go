package engine

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/fxc/lang"
)

// ParseOverrides decodes TEMP.PARAM=VALUE pairs for [Engine.Unparse].
// Values are read as YAML scalars or flow sequences, so "0.5", "true",
// "[1, 0, 0]" and "o1" keep their natural type. Hex colors are taken
// verbatim.
func ParseOverrides(sets []string) (lang.Overrides, error) {
	if len(sets) == 0 {
		return nil, nil
	}

	ov := make(lang.Overrides)

	for _, set := range sets {
		temp, param, v, err := ParseOverride(set)
		if err != nil {
			return nil, err
		}

		if ov[temp] == nil {
			ov[temp] = make(map[string]any)
		}

		ov[temp][param] = v
	}

	return ov, nil
}

// ParseOverride decodes one TEMP.PARAM=VALUE pair.
func ParseOverride(set string) (temp int, param string, value any, err error) {
	bad := ErrOverride.With(slog.String("override", set))

	key, text, ok := strings.Cut(set, "=")
	if text = strings.TrimSpace(text); !ok || text == "" {
		return 0, "", nil, bad
	}

	index, param, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || param == "" {
		return 0, "", nil, bad
	}

	temp, err = strconv.Atoi(index)
	if err != nil || temp < 0 {
		return 0, "", nil, bad
	}

	if strings.HasPrefix(text, "#") {
		return temp, param, text, nil
	}

	if err := yaml.Unmarshal([]byte(text), &value); err != nil {
		return 0, "", nil, bad.Wrap(err)
	}

	if value == nil {
		value = text
	}

	return temp, param, value, nil
}
