// Package server provides Connect RPC handlers for the content tree and the reader library.
package server

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/route"
)

const (
	ContentServiceName = "civics.v1.ContentService"

	ContentServiceGetSectionProcedure    = "/" + ContentServiceName + "/GetSection"
	ContentServiceFindItemProcedure      = "/" + ContentServiceName + "/FindItem"
	ContentServiceGetBreadcrumbProcedure = "/" + ContentServiceName + "/GetBreadcrumb"
	ContentServiceGetItemRouteProcedure  = "/" + ContentServiceName + "/GetItemRoute"
	ContentServiceSearchProcedure        = "/" + ContentServiceName + "/Search"
	ContentServiceListSectionsProcedure  = "/" + ContentServiceName + "/ListSections"
)

const maxSearchQueryLength = 256

// ContentHandler serves read-only lookups over the content tree.
type ContentHandler struct {
	tree *content.Tree
}

func NewContentHandler(tree *content.Tree) *ContentHandler {
	return &ContentHandler{tree: tree}
}

// NewContentServiceHandler builds the HTTP handler for every ContentService procedure.
func NewContentServiceHandler(h *ContentHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ContentServiceListSectionsProcedure, connect.NewUnaryHandler(ContentServiceListSectionsProcedure, h.ListSections, opts...))
	mux.Handle(ContentServiceGetSectionProcedure, connect.NewUnaryHandler(ContentServiceGetSectionProcedure, h.GetSection, opts...))
	mux.Handle(ContentServiceFindItemProcedure, connect.NewUnaryHandler(ContentServiceFindItemProcedure, h.FindItem, opts...))
	mux.Handle(ContentServiceGetBreadcrumbProcedure, connect.NewUnaryHandler(ContentServiceGetBreadcrumbProcedure, h.GetBreadcrumb, opts...))
	mux.Handle(ContentServiceGetItemRouteProcedure, connect.NewUnaryHandler(ContentServiceGetItemRouteProcedure, h.GetItemRoute, opts...))
	mux.Handle(ContentServiceSearchProcedure, connect.NewUnaryHandler(ContentServiceSearchProcedure, h.Search, opts...))
	return "/" + ContentServiceName + "/", mux
}

// ListSections returns every main section with its sections and item summaries.
func (h *ContentHandler) ListSections(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	mainSections := h.tree.MainSections()
	values := make([]any, 0, len(mainSections))
	for _, main := range mainSections {
		values = append(values, mainSectionFields(main))
	}
	list, err := newList(values)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// GetSection returns a main section by id.
func (h *ContentHandler) GetSection(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	main, ok := h.tree.GetSectionByID(id)
	if !ok {
		return nil, notFound("main_section", id)
	}
	s, err := newStruct(mainSectionFields(main))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

// FindItem returns an item with its section, main section and breadcrumb.
func (h *ContentHandler) FindItem(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	location, ok := h.tree.FindItemByID(id)
	if !ok {
		return nil, notFound("item", id)
	}
	s, err := newStruct(locationFields(location))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

func (h *ContentHandler) GetBreadcrumb(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.ListValue], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	breadcrumb, ok := h.tree.Breadcrumb(id)
	if !ok {
		return nil, notFound("item", id)
	}
	list, err := newList(stringsToAny(breadcrumb))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// GetItemRoute classifies id without resolving it; the destination screen resolves it.
func (h *ContentHandler) GetItemRoute(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	return connect.NewResponse(wrapperspb.String(route.ItemRoute(id))), nil
}

func (h *ContentHandler) Search(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.ListValue], error) {
	query := req.Msg.GetValue()
	if utf8.RuneCountInString(query) > maxSearchQueryLength {
		return nil, invalidArgument("query", fmt.Sprintf("must be at most %d characters", maxSearchQueryLength))
	}
	locations := h.tree.Search(query)
	values := make([]any, 0, len(locations))
	for _, location := range locations {
		values = append(values, map[string]any{
			"id":         location.Item.ID,
			"title":      location.Item.Title,
			"summary":    location.Item.Summary,
			"route":      route.ItemRoute(location.Item.ID),
			"breadcrumb": stringsToAny(location.Breadcrumb()),
		})
	}
	list, err := newList(values)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}
