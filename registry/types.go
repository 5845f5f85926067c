package registry

// Category represents a top-level category entry in the registry taxonomy.
// This matches the object nested under the "category" key of a lookup
// response.
type Category struct {
	// ID is the category identifier, usually identical to the slug.
	ID string `json:"id"`

	// Slug is the URL-safe category name packages declare.
	Slug string `json:"slug"`

	// Description is the human-readable category description.
	Description string `json:"description,omitempty"`

	// Subcategories lists the child categories of this entry.
	// Subcategory slugs are qualified by their parent
	// (e.g. "development-tools::build-utils").
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

// Subcategory represents a child category nested under a Category.
type Subcategory struct {
	// ID is the subcategory identifier.
	ID string `json:"id"`

	// Slug is the fully qualified subcategory slug, including the
	// parent prefix and "::" separator.
	Slug string `json:"slug"`

	// Description is the human-readable subcategory description.
	Description string `json:"description,omitempty"`
}

// HasSubcategory reports whether any subcategory of c carries the given
// fully qualified slug.
func (c *Category) HasSubcategory(qualifiedSlug string) bool {
	for _, sub := range c.Subcategories {
		if sub.Slug == qualifiedSlug {
			return true
		}
	}
	return false
}
