package catalog

import "fmt"

// CatalogError is raised at catalog load time: duplicate entity names,
// dangling column references, or malformed foreign-key edges.
type CatalogError struct {
	Location string // JSON-pointer-style path into the catalog document
	Message  string
}

func (e *CatalogError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("catalog error: %s", e.Message)
	}
	return fmt.Sprintf("catalog error at %s: %s", e.Location, e.Message)
}

// UnknownEntityError is raised whenever an IR references an entity
// name absent from the catalog.
type UnknownEntityError struct {
	Name     string
	Location string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q (at %s)", e.Name, e.Location)
}
