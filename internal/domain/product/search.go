package product

import "strings"

// Filter narrows a product listing the way the till's search box does.
// An empty Category matches every category.
type Filter struct {
	Query    string
	Category string
}

// Match reports whether p satisfies the filter. The query matches name or
// category case-insensitively, or any substring of the barcode.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	lq := strings.ToLower(q)
	if strings.Contains(strings.ToLower(p.Name), lq) || strings.Contains(strings.ToLower(p.Category), lq) {
		return true
	}
	return p.Barcode != "" && strings.Contains(p.Barcode, q)
}

// Apply returns the products matching f, preserving order.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories of products in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
