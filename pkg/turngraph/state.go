package turngraph

// State is the conversation context threaded through one run: an
// open-ended mapping from field name to value. The engine never
// inspects field contents; it only merges the whole-or-partial
// replacements returned by node transforms.
//
// A State belongs to exactly one run. Create a fresh one per Run call
// and never share it across concurrent runs.
type State map[string]any

// Unset is the explicit "no value" marker. A transform that returns a
// patch with a field set to Unset clears that field from the merged
// state, which is observably different from omitting the field (an
// omitted field is carried over unchanged).
//
//	return turngraph.State{"pending_image": turngraph.Unset}, nil
var Unset = unsetMarker{}

type unsetMarker struct{}

// merge applies a node result to the prior state with shallow-merge
// semantics: every field present in patch overwrites the prior value,
// a field set to Unset is deleted, and fields absent from patch are
// carried over. The result is always a fresh map; neither input is
// mutated.
func merge(prior, patch State) State {
	next := make(State, len(prior)+len(patch))
	for k, v := range prior {
		next[k] = v
	}
	for k, v := range patch {
		if _, cleared := v.(unsetMarker); cleared {
			delete(next, k)
			continue
		}
		next[k] = v
	}
	return next
}

// Clone returns a shallow copy of the state. Field values are shared;
// the map itself is fresh.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Get returns the raw value for key and whether it is present.
func (s State) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Has returns true if the field is present.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns the string value for key, or "" if the field is
// missing or holds a different type.
func (s State) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value for key, or false if the field is
// missing or holds a different type.
func (s State) Bool(key string) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return false
}

// Int returns the integer value for key, or 0 if the field is missing
// or not convertible. int64 and whole float64 values (as produced by
// JSON decoding) are converted.
func (s State) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return 0
}

// Float returns the float64 value for key, or 0 if the field is
// missing or not convertible.
func (s State) Float(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
