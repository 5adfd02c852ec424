package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/library"
	"github.com/at-ishikawa/civics/internal/preferences"
)

const (
	LibraryServiceName = "civics.v1.LibraryService"

	LibraryServiceListFavoritesProcedure     = "/" + LibraryServiceName + "/ListFavorites"
	LibraryServiceAddFavoriteProcedure       = "/" + LibraryServiceName + "/AddFavorite"
	LibraryServiceRemoveFavoriteProcedure    = "/" + LibraryServiceName + "/RemoveFavorite"
	LibraryServiceIsFavoriteProcedure        = "/" + LibraryServiceName + "/IsFavorite"
	LibraryServiceRecordVisitProcedure       = "/" + LibraryServiceName + "/RecordVisit"
	LibraryServiceGetHistoryProcedure        = "/" + LibraryServiceName + "/GetHistory"
	LibraryServiceClearHistoryProcedure      = "/" + LibraryServiceName + "/ClearHistory"
	LibraryServiceGetPreferencesProcedure    = "/" + LibraryServiceName + "/GetPreferences"
	LibraryServiceUpdatePreferencesProcedure = "/" + LibraryServiceName + "/UpdatePreferences"
)

// LibraryHandler serves the reader's favorites, history and preferences.
type LibraryHandler struct {
	tree    *content.Tree
	library *library.Library
	logger  *slog.Logger
}

func NewLibraryHandler(tree *content.Tree, lib *library.Library, logger *slog.Logger) *LibraryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryHandler{
		tree:    tree,
		library: lib,
		logger:  logger,
	}
}

func NewLibraryServiceHandler(h *LibraryHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(LibraryServiceListFavoritesProcedure, connect.NewUnaryHandler(LibraryServiceListFavoritesProcedure, h.ListFavorites, opts...))
	mux.Handle(LibraryServiceAddFavoriteProcedure, connect.NewUnaryHandler(LibraryServiceAddFavoriteProcedure, h.AddFavorite, opts...))
	mux.Handle(LibraryServiceRemoveFavoriteProcedure, connect.NewUnaryHandler(LibraryServiceRemoveFavoriteProcedure, h.RemoveFavorite, opts...))
	mux.Handle(LibraryServiceIsFavoriteProcedure, connect.NewUnaryHandler(LibraryServiceIsFavoriteProcedure, h.IsFavorite, opts...))
	mux.Handle(LibraryServiceRecordVisitProcedure, connect.NewUnaryHandler(LibraryServiceRecordVisitProcedure, h.RecordVisit, opts...))
	mux.Handle(LibraryServiceGetHistoryProcedure, connect.NewUnaryHandler(LibraryServiceGetHistoryProcedure, h.GetHistory, opts...))
	mux.Handle(LibraryServiceClearHistoryProcedure, connect.NewUnaryHandler(LibraryServiceClearHistoryProcedure, h.ClearHistory, opts...))
	mux.Handle(LibraryServiceGetPreferencesProcedure, connect.NewUnaryHandler(LibraryServiceGetPreferencesProcedure, h.GetPreferences, opts...))
	mux.Handle(LibraryServiceUpdatePreferencesProcedure, connect.NewUnaryHandler(LibraryServiceUpdatePreferencesProcedure, h.UpdatePreferences, opts...))
	return "/" + LibraryServiceName + "/", mux
}

// ListFavorites returns favorited ids in the order they were added.
func (h *LibraryHandler) ListFavorites(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	list, err := newList(stringsToAny(h.library.Favorites.List()))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// AddFavorite favorites an item of the content tree.
func (h *LibraryHandler) AddFavorite(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[emptypb.Empty], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	if _, ok := h.tree.FindItemByID(id); !ok {
		return nil, notFound("item", id)
	}
	if err := h.library.Favorites.Add(id); err != nil {
		return nil, toConnectError(fmt.Errorf("Favorites.Add(%s) > %w", id, err))
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// RemoveFavorite unfavorites id. Unknown ids are accepted so stale favorites can be removed.
func (h *LibraryHandler) RemoveFavorite(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[emptypb.Empty], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	if err := h.library.Favorites.Remove(id); err != nil {
		return nil, toConnectError(fmt.Errorf("Favorites.Remove(%s) > %w", id, err))
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (h *LibraryHandler) IsFavorite(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.BoolValue], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	return connect.NewResponse(wrapperspb.Bool(h.library.Favorites.IsFavorite(id))), nil
}

// RecordVisit records that an item was opened and returns its history entry.
func (h *LibraryHandler) RecordVisit(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	id := req.Msg.GetValue()
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	_, entry, found, err := h.library.Visit(h.tree, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !found {
		return nil, notFound("item", id)
	}
	s, err := newStruct(entryFields(entry, h.tree))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

// GetHistory returns the reading history, most recent first.
func (h *LibraryHandler) GetHistory(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	entries := h.library.History.History()
	values := make([]any, 0, len(entries))
	for _, entry := range entries {
		values = append(values, entryFields(entry, h.tree))
	}
	list, err := newList(values)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

func (h *LibraryHandler) ClearHistory(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[emptypb.Empty], error) {
	if err := h.library.History.Clear(); err != nil {
		return nil, toConnectError(fmt.Errorf("History.Clear() > %w", err))
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (h *LibraryHandler) GetPreferences(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	s, err := newStruct(preferencesFields(h.library.Preferences.Get()))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

// UpdatePreferences applies the text_size and theme_mode fields present in the request.
// The request is rejected as a whole when any field is unknown or invalid.
func (h *LibraryHandler) UpdatePreferences(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var change preferences.Preferences
	for name, v := range req.Msg.GetFields() {
		value, ok := v.GetKind().(*structpb.Value_StringValue)
		switch name {
		case "text_size":
			if !ok || !preferences.TextSize(value.StringValue).Valid() {
				return nil, invalidArgument(name, "must be one of "+joinValues(preferences.TextSizes))
			}
			change.TextSize = preferences.TextSize(value.StringValue)
		case "theme_mode":
			if !ok || !preferences.ThemeMode(value.StringValue).Valid() {
				return nil, invalidArgument(name, "must be one of "+joinValues(preferences.ThemeModes))
			}
			change.ThemeMode = preferences.ThemeMode(value.StringValue)
		default:
			return nil, invalidArgument(name, "is not a known preference")
		}
	}

	if err := h.library.Preferences.Update(change); err != nil {
		return nil, toConnectError(fmt.Errorf("Preferences.Update() > %w", err))
	}

	s, err := newStruct(preferencesFields(h.library.Preferences.Get()))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}

func joinValues[T ~string](values []T) string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}
