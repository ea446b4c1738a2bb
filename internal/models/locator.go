package models

import "fmt"

// LocatorKind identifies what kind of structural position a locator carries.
type LocatorKind string

const (
	// LocatorNone is used for formats without natural structure (plain text).
	LocatorNone LocatorKind = "none"
	// LocatorPage is a 1-based page number (PDF).
	LocatorPage LocatorKind = "page"
	// LocatorRow is a 1-based row index (CSV, spreadsheets).
	LocatorRow LocatorKind = "row"
	// LocatorName is a free-form label (image filename, database summary).
	LocatorName LocatorKind = "name"
)

// Locator is the structural position of a chunk's source text within its document.
type Locator struct {
	Kind LocatorKind `json:"kind"`
	Page int         `json:"page,omitempty"`
	Row  int         `json:"row,omitempty"`
	Name string      `json:"name,omitempty"`
}

// NoLocator is the locator for unstructured sources.
var NoLocator = Locator{Kind: LocatorNone}

// PageLocator returns a page locator (1-based).
func PageLocator(page int) Locator { return Locator{Kind: LocatorPage, Page: page} }

// RowLocator returns a row locator (1-based).
func RowLocator(row int) Locator { return Locator{Kind: LocatorRow, Row: row} }

// NameLocator returns a named locator.
func NameLocator(name string) Locator { return Locator{Kind: LocatorName, Name: name} }

// String renders the locator for prompt tagging and source display.
func (l Locator) String() string {
	switch l.Kind {
	case LocatorPage:
		return fmt.Sprintf("page %d", l.Page)
	case LocatorRow:
		return fmt.Sprintf("row %d", l.Row)
	case LocatorName:
		return l.Name
	default:
		return "document"
	}
}
