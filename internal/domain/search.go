package domain

// FieldMatch is a case-insensitive substring condition on a named field of a catalog
// entity. Stores map Field to a column through their own whitelist.
type FieldMatch struct {
	Field string
	Value string
}

// BuildFieldMatches keeps the params whose key is in allowed, in the order of allowed.
func BuildFieldMatches(params map[string]string, allowed []string) []FieldMatch {
	var matches []FieldMatch
	for _, field := range allowed {
		if v, ok := params[field]; ok {
			matches = append(matches, FieldMatch{Field: field, Value: v})
		}
	}
	return matches
}
