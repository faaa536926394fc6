package expressions

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"
)

// Evaluator wraps JMESPath expression evaluation with a compiled expression cache.
type Evaluator struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

// NewEvaluator creates a new expression evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*jmespath.JMESPath),
	}
}

// Evaluate evaluates a JMESPath expression against data
func (e *Evaluator) Evaluate(expression string, data any) (any, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return result, nil
}

// FirstOf returns the result of the first expression that yields a non-empty
// value. Expressions that fail to evaluate are skipped.
func (e *Evaluator) FirstOf(data any, expressions ...string) any {
	for _, expression := range expressions {
		result, err := e.Evaluate(expression, data)
		if err != nil || isEmpty(result) {
			continue
		}
		return result
	}
	return nil
}

// FirstObject is FirstOf restricted to JSON objects.
func (e *Evaluator) FirstObject(data any, expressions ...string) (map[string]any, bool) {
	for _, expression := range expressions {
		result, err := e.Evaluate(expression, data)
		if err != nil {
			continue
		}
		if obj, ok := result.(map[string]any); ok && len(obj) > 0 {
			return obj, true
		}
	}
	return nil, false
}

// FirstString is FirstOf restricted to non-blank strings. Numbers are formatted.
func (e *Evaluator) FirstString(data any, expressions ...string) (string, bool) {
	for _, expression := range expressions {
		result, err := e.Evaluate(expression, data)
		if err != nil {
			continue
		}
		if s, ok := AsString(result); ok {
			return s, true
		}
	}
	return "", false
}

// FirstNumber is FirstOf restricted to non-zero numbers. Numeric strings are parsed.
func (e *Evaluator) FirstNumber(data any, expressions ...string) (float64, bool) {
	for _, expression := range expressions {
		result, err := e.Evaluate(expression, data)
		if err != nil {
			continue
		}
		if n, ok := AsNumber(result); ok && n != 0 {
			return n, true
		}
	}
	return 0, false
}

// Strings evaluates expression and keeps the non-blank string results.
func (e *Evaluator) Strings(expression string, data any) []string {
	result, err := e.Evaluate(expression, data)
	if err != nil {
		return nil
	}

	items, ok := result.([]any)
	if !ok {
		if s, ok := AsString(result); ok {
			return []string{s}
		}
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := AsString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// AsString returns v as a trimmed non-empty string.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// AsNumber returns v as a float64 when it is a number or a numeric string.
func AsNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func (e *Evaluator) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	compiled, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()
	return compiled, nil
}
