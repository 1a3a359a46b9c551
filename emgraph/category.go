package emgraph

import "strings"

// Category is the kind of step a node represents. Categories drive the
// vertical ordering inside a slice.
type Category string

const (
	CategoryTrigger    Category = "trigger"
	CategoryScreen     Category = "screen"
	CategoryCommand    Category = "command"
	CategoryAutomation Category = "automation"
	CategoryView       Category = "view"
	CategoryEvent      Category = "event"
	CategoryUnknown    Category = "unknown"
)

var Categories = []Category{
	CategoryTrigger,
	CategoryScreen,
	CategoryCommand,
	CategoryAutomation,
	CategoryView,
	CategoryEvent,
}

// ParseCategory is case-insensitive and maps anything unrecognized to
// CategoryUnknown. "readmodel" is accepted as an alias for view.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryTrigger, CategoryScreen, CategoryCommand, CategoryAutomation, CategoryView, CategoryEvent:
		return c
	case "readmodel", "read_model":
		return CategoryView
	}
	return CategoryUnknown
}
