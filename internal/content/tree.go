package content

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrDuplicateID is returned when two nodes of the tree share an ID.
	ErrDuplicateID = errors.New("duplicate content id")
	// ErrInvalidFixture is returned when a node misses a required field.
	ErrInvalidFixture = errors.New("invalid content fixture")
)

type itemPath struct {
	main, section, item int
}

// Tree is the immutable content hierarchy.
// It is safe for concurrent reads once NewTree returns.
type Tree struct {
	mainSections []MainSection
	mainIndex    map[string]int
	itemIndex    map[string]itemPath
}

// NewTree validates the main sections and builds the lookup index.
// Main section, section and item IDs must be unique across the tree.
func NewTree(mainSections []MainSection) (*Tree, error) {
	if err := validator.New().Struct(fixture{MainSections: mainSections}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	tree := &Tree{
		mainSections: cloneMainSections(mainSections),
		mainIndex:    make(map[string]int, len(mainSections)),
		itemIndex:    make(map[string]itemPath),
	}
	sectionIDs := make(map[string]bool)
	for i, main := range tree.mainSections {
		if _, ok := tree.mainIndex[main.ID]; ok {
			return nil, fmt.Errorf("main section %q: %w", main.ID, ErrDuplicateID)
		}
		tree.mainIndex[main.ID] = i

		for j, section := range main.Sections {
			if sectionIDs[section.ID] {
				return nil, fmt.Errorf("section %q: %w", section.ID, ErrDuplicateID)
			}
			sectionIDs[section.ID] = true

			for k, item := range section.SubSections {
				if existing, ok := tree.itemIndex[item.ID]; ok {
					return nil, fmt.Errorf("item %q in %s/%s, already in %s/%s: %w",
						item.ID, main.ID, section.ID,
						tree.mainSections[existing.main].ID,
						tree.mainSections[existing.main].Sections[existing.section].ID,
						ErrDuplicateID)
				}
				tree.itemIndex[item.ID] = itemPath{main: i, section: j, item: k}
			}
		}
	}
	return tree, nil
}

// MainSections returns the main sections in fixture order.
func (t *Tree) MainSections() []MainSection {
	return cloneMainSections(t.mainSections)
}

// GetSectionByID returns the main section with the given ID.
func (t *Tree) GetSectionByID(id string) (MainSection, bool) {
	i, ok := t.mainIndex[id]
	if !ok {
		return MainSection{}, false
	}
	return cloneMainSection(t.mainSections[i]), true
}

// FindItemByID resolves an item ID to the item and its ancestors.
func (t *Tree) FindItemByID(id string) (ItemLocation, bool) {
	path, ok := t.itemIndex[id]
	if !ok {
		return ItemLocation{}, false
	}
	return t.location(path), true
}

// Breadcrumb returns [main section title, section title, item title] for an item ID.
func (t *Tree) Breadcrumb(id string) ([]string, bool) {
	location, ok := t.FindItemByID(id)
	if !ok {
		return nil, false
	}
	return location.Breadcrumb(), true
}

// ItemCount returns the number of leaves in the tree.
func (t *Tree) ItemCount() int {
	return len(t.itemIndex)
}

// Walk calls fn for every item in tree order until fn returns false.
func (t *Tree) Walk(fn func(ItemLocation) bool) {
	for i, main := range t.mainSections {
		for j, section := range main.Sections {
			for k := range section.SubSections {
				if !fn(t.location(itemPath{main: i, section: j, item: k})) {
					return
				}
			}
		}
	}
}

// Search returns the items whose title or summary contains query, ignoring case.
func (t *Tree) Search(query string) []ItemLocation {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var result []ItemLocation
	t.Walk(func(location ItemLocation) bool {
		if strings.Contains(strings.ToLower(location.Item.Title), query) ||
			strings.Contains(strings.ToLower(location.Item.Summary), query) {
			result = append(result, location)
		}
		return true
	})
	return result
}

func (t *Tree) location(path itemPath) ItemLocation {
	main := t.mainSections[path.main]
	section := main.Sections[path.section]
	return ItemLocation{
		Item:        section.SubSections[path.item],
		Section:     cloneSection(section),
		MainSection: cloneMainSection(main),
	}
}

func cloneMainSections(mainSections []MainSection) []MainSection {
	result := make([]MainSection, len(mainSections))
	for i, main := range mainSections {
		result[i] = cloneMainSection(main)
	}
	return result
}

func cloneMainSection(main MainSection) MainSection {
	sections := make([]Section, len(main.Sections))
	for i, section := range main.Sections {
		sections[i] = cloneSection(section)
	}
	main.Sections = sections
	return main
}

func cloneSection(section Section) Section {
	section.SubSections = slices.Clone(section.SubSections)
	return section
}
