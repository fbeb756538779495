package assess

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IsEmpty reports whether an answer value counts as unanswered.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// Numeric returns v as a float64 when it holds a number. Strings are never numeric.
func Numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return 0, false
}

// Strings flattens a value into its string forms, one per selected choice.
func Strings(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, FormatValue(item))
		}
		return out
	}
	return []string{FormatValue(v)}
}

// FormatValue renders a scalar answer value for display and trigger matching.
func FormatValue(v any) string {
	if f, ok := Numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []string, []any:
		return strings.Join(Strings(val), ", ")
	}
	return fmt.Sprint(v)
}

// ParseValue converts raw input into a value of the question's type.
func (q Question) ParseValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch q.Type {
	case QuestionScale:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("question %s expects a number: %w", q.ID, err)
		}
		if q.Scale != nil && (f < float64(q.Scale.Min) || f > float64(q.Scale.Max)) {
			return nil, fmt.Errorf("question %s expects a value between %d and %d, got %s", q.ID, q.Scale.Min, q.Scale.Max, raw)
		}
		return f, nil
	case QuestionBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("question %s expects true or false: %w", q.ID, err)
		}
		return b, nil
	case QuestionSingleChoice:
		if err := q.checkOption(raw); err != nil {
			return nil, err
		}
		return raw, nil
	case QuestionMultiChoice:
		var picked []string
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if err := q.checkOption(part); err != nil {
				return nil, err
			}
			picked = append(picked, part)
		}
		return picked, nil
	}
	return raw, nil
}

func (q Question) checkOption(v string) error {
	if len(q.Options) == 0 {
		return nil
	}
	for _, opt := range q.Options {
		if opt == v {
			return nil
		}
	}
	return fmt.Errorf("question %s has no option %q (options: %s)", q.ID, v, strings.Join(q.Options, ", "))
}

// Fires reports whether value triggers the conditional.
func (c Conditional) Fires(value any) bool {
	if IsEmpty(value) {
		return false
	}
	if c.AtLeast != nil {
		if f, ok := Numeric(value); ok && f >= *c.AtLeast {
			return true
		}
	}
	for _, got := range Strings(value) {
		for _, want := range c.ShowIf {
			if strings.EqualFold(got, want) {
				return true
			}
		}
	}
	return false
}
