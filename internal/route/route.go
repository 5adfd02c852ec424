// Package route maps content IDs to client route paths.
package route

import "slices"

// FoundingDocumentIDs are the items presented with the document reader.
var FoundingDocumentIDs = []string{
	"declaration",
	"articles",
	"constitution",
	"bill-of-rights",
	"federalist-papers",
}

const (
	documentPrefix = "/document/"
	detailPrefix   = "/detail/"
	sectionPrefix  = "/section/"
)

// IsFoundingDocument reports whether id is exactly one of FoundingDocumentIDs.
func IsFoundingDocument(id string) bool {
	return slices.Contains(FoundingDocumentIDs, id)
}

// ItemRoute returns the route for an item. The ID is not checked against the content tree;
// the destination resolves it again and reports not found itself.
func ItemRoute(id string) string {
	if IsFoundingDocument(id) {
		return documentPrefix + id
	}
	return detailPrefix + id
}

// SectionRoute returns the route listing a main section.
func SectionRoute(id string) string {
	return sectionPrefix + id
}
