package filter

import "fmt"

// MaxConditions is the maximum number of equality constraints in one filter.
const MaxConditions = 16

// Metadata fields the match index exposes as TAG fields.
const (
	FieldTournament = "tournament_name"
	FieldRound      = "round"
	FieldSurface    = "surface"
)

// Expression is a conjunction of equality constraints on index metadata.
// The zero value is the empty filter (no constraints).
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates a filter Expression.
// A key may appear at most once.
func NewExpression(conditions ...Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	seen := make(map[string]struct{}, len(conditions))
	for _, c := range conditions {
		if _, dup := seen[c.key]; dup {
			return Expression{}, fmt.Errorf("duplicate filter key %q", c.key)
		}
		seen[c.key] = struct{}{}
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the equality constraints in insertion order.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Value returns the required value for key, if constrained.
func (e Expression) Value(key string) (string, bool) {
	for _, c := range e.conditions {
		if c.key == key {
			return c.value, true
		}
	}
	return "", false
}

// Condition requires a metadata field to equal a value.
type Condition struct {
	key   string
	value string
}

// NewEquals creates an equality condition.
func NewEquals(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("value is required for key %q", key)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Value returns the required value.
func (c Condition) Value() string { return c.value }
