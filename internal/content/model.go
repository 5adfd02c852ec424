// Package content provides the static content tree and its lookup index.
package content

// MainSection is a top-level topic such as "Founding Documents".
type MainSection struct {
	ID          string    `yaml:"id" validate:"required,max=128,printascii,excludesall=/\\"`
	Title       string    `yaml:"title" validate:"required"`
	Description string    `yaml:"description,omitempty"`
	Sections    []Section `yaml:"sections" validate:"dive"`
}

// Section groups related items under a main section.
type Section struct {
	ID          string       `yaml:"id" validate:"required,max=128,printascii,excludesall=/\\"`
	Title       string       `yaml:"title" validate:"required"`
	SubSections []SubSection `yaml:"subsections" validate:"dive"`
}

// SubSection is a leaf item of the tree. Its ID is unique across the whole tree.
type SubSection struct {
	ID      string `yaml:"id" validate:"required,max=128,printascii,excludesall=/\\"`
	Title   string `yaml:"title" validate:"required"`
	Summary string `yaml:"summary,omitempty"`
	Year    int    `yaml:"year,omitempty"`
	// Content is a markdown body rendered by the client.
	Content string `yaml:"content,omitempty"`
}

// ItemLocation is a leaf together with its ancestors.
type ItemLocation struct {
	Item        SubSection
	Section     Section
	MainSection MainSection
}

// Breadcrumb returns the titles from the main section down to the item.
func (l ItemLocation) Breadcrumb() []string {
	return []string{l.MainSection.Title, l.Section.Title, l.Item.Title}
}

type fixture struct {
	MainSections []MainSection `yaml:"main_sections" validate:"required,dive"`
}
