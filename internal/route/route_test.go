package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFoundingDocument(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "declaration", want: true},
		{id: "articles", want: true},
		{id: "constitution", want: true},
		{id: "bill-of-rights", want: true},
		{id: "federalist-papers", want: true},
		{id: "Declaration", want: false},
		{id: "declaration ", want: false},
		{id: "anti-federalists", want: false},
		{id: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFoundingDocument(tt.id))
		})
	}
}

func TestItemRoute(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{
			name: "founding document uses the document route",
			id:   "declaration",
			want: "/document/declaration",
		},
		{
			name: "other item uses the detail route",
			id:   "civil-war",
			want: "/detail/civil-war",
		},
		{
			name: "unknown id still gets a detail route",
			id:   "some-other-id",
			want: "/detail/some-other-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ItemRoute(tt.id))
		})
	}

	for _, id := range FoundingDocumentIDs {
		assert.Equal(t, "/document/"+id, ItemRoute(id))
	}
}

func TestSectionRoute(t *testing.T) {
	assert.Equal(t, "/section/foundations", SectionRoute("foundations"))
}
