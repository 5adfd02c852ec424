package server

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/history"
	"github.com/at-ishikawa/civics/internal/preferences"
	"github.com/at-ishikawa/civics/internal/route"
)

func stringsToAny(values []string) []any {
	result := make([]any, 0, len(values))
	for _, v := range values {
		result = append(result, v)
	}
	return result
}

func subSectionFields(item content.SubSection) map[string]any {
	return map[string]any{
		"id":      item.ID,
		"title":   item.Title,
		"summary": item.Summary,
		"year":    item.Year,
		"content": item.Content,
		"route":   route.ItemRoute(item.ID),
	}
}

func mainSectionFields(main content.MainSection) map[string]any {
	sections := make([]any, 0, len(main.Sections))
	for _, section := range main.Sections {
		items := make([]any, 0, len(section.SubSections))
		for _, item := range section.SubSections {
			items = append(items, map[string]any{
				"id":      item.ID,
				"title":   item.Title,
				"summary": item.Summary,
				"year":    item.Year,
				"route":   route.ItemRoute(item.ID),
			})
		}
		sections = append(sections, map[string]any{
			"id":          section.ID,
			"title":       section.Title,
			"subsections": items,
		})
	}
	return map[string]any{
		"id":          main.ID,
		"title":       main.Title,
		"description": main.Description,
		"route":       route.SectionRoute(main.ID),
		"sections":    sections,
	}
}

func locationFields(location content.ItemLocation) map[string]any {
	return map[string]any{
		"item": subSectionFields(location.Item),
		"section": map[string]any{
			"id":    location.Section.ID,
			"title": location.Section.Title,
		},
		"main_section": map[string]any{
			"id":    location.MainSection.ID,
			"title": location.MainSection.Title,
			"route": route.SectionRoute(location.MainSection.ID),
		},
		"breadcrumb": stringsToAny(location.Breadcrumb()),
	}
}

func entryFields(entry history.Entry, tree *content.Tree) map[string]any {
	fields := map[string]any{
		"item_id":     entry.ItemID,
		"visited_at":  entry.VisitedAt.UTC().Format(time.RFC3339),
		"visit_count": entry.VisitCount,
		"route":       route.ItemRoute(entry.ItemID),
	}
	if location, ok := tree.FindItemByID(entry.ItemID); ok {
		fields["title"] = location.Item.Title
		fields["breadcrumb"] = stringsToAny(location.Breadcrumb())
	}
	return fields
}

func preferencesFields(prefs preferences.Preferences) map[string]any {
	return map[string]any{
		"text_size":  string(prefs.TextSize),
		"theme_mode": string(prefs.ThemeMode),
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("structpb.NewStruct() > %w", err)
	}
	return s, nil
}

func newList(values []any) (*structpb.ListValue, error) {
	l, err := structpb.NewList(values)
	if err != nil {
		return nil, fmt.Errorf("structpb.NewList() > %w", err)
	}
	return l, nil
}
