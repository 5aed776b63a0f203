package search

import "strings"

// normalizeQuery lower-cases and collapses whitespace so equal queries
// always produce equal cache keys.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// BoostQuery appends a disjunction of domain hints and a disjunction of
// keyword hints to the raw query. The output is a pure function of its
// inputs; the cache key depends on that.
func BoostQuery(query string, domains, keywords []string) string {
	parts := []string{normalizeQuery(query)}
	if len(domains) > 0 {
		parts = append(parts, "("+strings.Join(domains, " OR ")+")")
	}
	if len(keywords) > 0 {
		parts = append(parts, "("+strings.Join(keywords, " OR ")+")")
	}
	return strings.Join(parts, " ")
}
