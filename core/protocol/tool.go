package protocol

import "slices"

// Tool describes a registered operation: its unique name, the description
// shown to the intent classifier, a JSON-schema style parameter map, and the
// UI contexts it is visible in. A Tool with no Contexts is visible in every
// context.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Contexts    []string       `json:"contexts,omitempty"`
}

// VisibleIn reports whether the tool may be offered in context.
func (t Tool) VisibleIn(context string) bool {
	return len(t.Contexts) == 0 || slices.Contains(t.Contexts, context)
}

// Declares reports whether the parameter schema names key.
func (t Tool) Declares(key string) bool {
	props, ok := t.Parameters["properties"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = props[key]
	return ok
}

// Schema builds an object parameter schema from property names and types.
// Required lists the keys that must be supplied.
func Schema(properties map[string]string, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, typ := range properties {
		props[name] = map[string]any{"type": typ}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
