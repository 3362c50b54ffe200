// internal/rules/coerce.go
package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Binding coercion for substitution and evaluation.
 *
 * Raw bindings arrive as map[string]any from YAML documents or CLI flags
 * and are coerced against the variable table of the rule set they apply to.
 *
 * Coercion modes per kind:
 *   - NUMERIC: lenient - accepts float64, int, int64 and numeric strings
 *     (trimmed); rejects booleans.
 *   - CATEGORICAL: strict - string labels only, no numeric-to-label
 *     coercion (avoids the 1 vs "1" ambiguity).
 *
 * Bindings for variables no rule references are dropped silently: a binding
 * document routinely covers more variables than any one rule set uses.
 */

// Value is a coerced binding, tagged by variable kind.
type Value struct {
	Kind   types.VarKind
	Number float64 // set when Kind == KindNumeric
	Label  string  // set when Kind == KindCategorical
}

// Bindings maps variable names to coerced values.
type Bindings map[string]Value

// CoerceBindings validates raw bindings against the set's variable table.
// Unknown variables are dropped; kind mismatches fail with the offending
// binding named. Keys are processed in sorted order so the first error is
// deterministic.
func CoerceBindings(rs *types.RuleSet, raw map[string]any) (Bindings, error) {
	if len(raw) > types.MaxBindings {
		return nil, fmt.Errorf("%d bindings: %w", len(raw), types.ErrTooManyBindings)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Bindings, len(keys))
	for _, name := range keys {
		v, ok := rs.Var(name)
		if !ok {
			continue
		}
		switch v.Kind {
		case types.KindNumeric:
			f, err := coerceNumber(raw[name])
			if err != nil {
				return nil, fmt.Errorf("binding %q: %w", name, err)
			}
			out[name] = Value{Kind: types.KindNumeric, Number: f}
		case types.KindCategorical:
			l, err := coerceLabel(raw[name])
			if err != nil {
				return nil, fmt.Errorf("binding %q: %w", name, err)
			}
			out[name] = Value{Kind: types.KindCategorical, Label: l}
		default:
			return nil, fmt.Errorf("binding %q: %w", name, types.ErrKindMismatch)
		}
	}
	return out, nil
}

// coerceNumber converts a raw value to float64.
// Accepts float64, int, int64 and numeric strings. Rejects booleans.
func coerceNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			// Empty/whitespace-only strings are not valid numbers
			return 0, types.ErrKindMismatch
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, types.ErrKindMismatch
		}
		return f, nil
	default:
		return 0, types.ErrKindMismatch
	}
}

// coerceLabel validates a raw value is a string label.
// Strict mode: no numeric-to-label coercion.
func coerceLabel(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", types.ErrKindMismatch
}
