package models

// CategoryDef defines a known category and its chart color.
type CategoryDef struct {
	Name  string
	Color string
}

// Categories is the built-in category set. Free-form values are still
// accepted everywhere; they just render with the fallback color.
var Categories = []CategoryDef{
	{"Alimentation", "#60a5fa"},
	{"Transport", "#a78bfa"},
	{"Loisirs", "#f472b6"},
	{"Santé", "#fbbf24"},
}

// DefaultCategory is used when an expense is added without a category.
const DefaultCategory = "Alimentation"

// DefaultCategoryColor is the chart color for unrecognized categories.
const DefaultCategoryColor = "#94a3b8"

// CategoryColor returns the chart color for a category, falling back to
// DefaultCategoryColor for values outside the built-in set.
func CategoryColor(name string) string {
	for _, c := range Categories {
		if c.Name == name {
			return c.Color
		}
	}
	return DefaultCategoryColor
}
