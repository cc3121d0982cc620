package core

// AllCategories is the category filter value that matches every record.
const AllCategories = "All"

// Category is a catalogue entry with its display metadata.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Catalogue is an ordered list of known categories.
type Catalogue []Category

// DefaultCategory is the display used for names missing from the catalogue.
var DefaultCategory = Category{Color: "gray", Icon: "credit-card"}

// DefaultCatalogue returns the built-in categories in display order.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		{Name: "Food", Color: "blue", Icon: "utensils"},
		{Name: "Transport", Color: "green", Icon: "car"},
		{Name: "Shopping", Color: "pink", Icon: "shopping-bag"},
		{Name: "Bills", Color: "yellow", Icon: "zap"},
		{Name: "Entertainment", Color: "orange", Icon: "film"},
		{Name: "Other", Color: "purple", Icon: "home"},
	}
}

// Lookup returns the entry named name, if any.
func (c Catalogue) Lookup(name string) (Category, bool) {
	for _, cat := range c {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// Display returns the entry named name, or DefaultCategory carrying that name.
func (c Catalogue) Display(name string) Category {
	if cat, ok := c.Lookup(name); ok {
		return cat
	}
	d := DefaultCategory
	d.Name = name
	return d
}

// Names lists the category names in catalogue order.
func (c Catalogue) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}
