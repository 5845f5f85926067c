package categorycheck

import "strings"

// specifierSeparator separates a parent category from its subcategory in a
// declared specifier. Only the first occurrence splits; registry
// subcategory slugs legitimately contain the separator themselves.
const specifierSeparator = "::"

// Specifier is a parsed declared category string.
type Specifier struct {
	// Category is the top-level category slug.
	Category string

	// Subcategory is the remainder after the first "::", which may itself
	// contain further separators. Empty unless HasSubcategory.
	Subcategory string

	// HasSubcategory reports whether a separator was present at all.
	HasSubcategory bool
}

// ParseSpecifier splits a raw category specifier on the first "::".
//
//	"development-tools"               → ("development-tools", -, false)
//	"development-tools::build-utils"  → ("development-tools", "build-utils", true)
//	"a::b::c"                         → ("a", "b::c", true)
func ParseSpecifier(raw string) Specifier {
	cat, sub, found := strings.Cut(raw, specifierSeparator)
	return Specifier{Category: cat, Subcategory: sub, HasSubcategory: found}
}
