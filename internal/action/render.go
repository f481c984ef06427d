package action

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mcastro2021/barrioflow/model"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// RenderParams resolves "{key}" placeholders in param values against the
// execution context. A string that is exactly one placeholder is replaced
// by the context value itself, preserving its type; placeholders embedded
// in longer strings are stringified in place. Unresolved placeholders are
// left verbatim. Nested maps are rendered recursively.
func RenderParams(params map[string]any, ec model.ExecutionContext) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = renderValue(v, ec)
	}
	return out
}

func renderValue(v any, ec model.ExecutionContext) any {
	switch val := v.(type) {
	case string:
		return RenderString(val, ec)
	case map[string]any:
		return RenderParams(val, ec)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = renderValue(item, ec)
		}
		return out
	}
	return v
}

// RenderString substitutes context values into a template string.
func RenderString(s string, ec model.ExecutionContext) any {
	// Whole-value placeholder keeps the typed context value.
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		key := s[1 : len(s)-1]
		if !strings.ContainsAny(key, "{}") {
			if v, ok := ec[key]; ok {
				return v
			}
			return s
		}
	}

	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[1 : len(match)-1]
		if v, ok := ec[key]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}
