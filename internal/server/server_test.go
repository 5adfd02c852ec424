package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/at-ishikawa/civics/internal/config"
	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/library"
	"github.com/at-ishikawa/civics/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTree(t *testing.T) *content.Tree {
	t.Helper()
	tree, err := content.Default()
	require.NoError(t, err)
	return tree
}

func newTestLibrary(t *testing.T, load bool) *library.Library {
	t.Helper()
	lib := library.New(storage.NewMemoryStorage(), config.HistoryConfig{MaxEntries: 50}, discardLogger())
	if load {
		require.NoError(t, lib.Load(context.Background()))
	}
	t.Cleanup(func() {
		_ = lib.Close(context.Background())
	})
	return lib
}

func requireConnectCode(t *testing.T, err error, want connect.Code) *connect.Error {
	t.Helper()
	require.Error(t, err)
	var connectErr *connect.Error
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, want, connectErr.Code())
	return connectErr
}

func TestContentHandler_FindItem(t *testing.T) {
	handler := NewContentHandler(newTestTree(t))

	tests := []struct {
		name           string
		id             string
		wantCode       connect.Code
		wantErr        bool
		wantBreadcrumb []any
		wantRoute      string
	}{
		{
			name:           "founding document",
			id:             "declaration",
			wantBreadcrumb: []any{"Founding Documents", "Declaring Independence", "Declaration of Independence"},
			wantRoute:      "/document/declaration",
		},
		{
			name:           "regular item",
			id:             "civil-war",
			wantBreadcrumb: []any{"American History", "The 1800s", "The Civil War"},
			wantRoute:      "/detail/civil-war",
		},
		{
			name:      "federalist papers is a founding document",
			id:        "federalist-papers",
			wantRoute: "/document/federalist-papers",
		},
		{
			name:     "empty id",
			id:       "",
			wantCode: connect.CodeInvalidArgument,
			wantErr:  true,
		},
		{
			name:     "oversized id",
			id:       strings.Repeat("a", maxIDLength+1),
			wantCode: connect.CodeInvalidArgument,
			wantErr:  true,
		},
		{
			name:     "unknown id",
			id:       "no-such-item",
			wantCode: connect.CodeNotFound,
			wantErr:  true,
		},
		{
			name:     "main section id is not an item",
			id:       "foundations",
			wantCode: connect.CodeNotFound,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler.FindItem(context.Background(), connect.NewRequest(wrapperspb.String(tt.id)))
			if tt.wantErr {
				requireConnectCode(t, err, tt.wantCode)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			got := resp.Msg.AsMap()
			item := got["item"].(map[string]any)
			assert.Equal(t, tt.id, item["id"])
			assert.Equal(t, tt.wantRoute, item["route"])
			if tt.wantBreadcrumb != nil {
				assert.Equal(t, tt.wantBreadcrumb, got["breadcrumb"])
			}
		})
	}
}

func TestContentHandler_ErrorDetails(t *testing.T) {
	handler := NewContentHandler(newTestTree(t))

	t.Run("invalid argument carries a field violation", func(t *testing.T) {
		_, err := handler.GetBreadcrumb(context.Background(), connect.NewRequest(wrapperspb.String("")))
		connectErr := requireConnectCode(t, err, connect.CodeInvalidArgument)
		require.Len(t, connectErr.Details(), 1)
		msg, err := connectErr.Details()[0].Value()
		require.NoError(t, err)
		badRequest, ok := msg.(*errdetails.BadRequest)
		require.True(t, ok)
		require.Len(t, badRequest.GetFieldViolations(), 1)
		assert.Equal(t, "id", badRequest.GetFieldViolations()[0].GetField())
		assert.Equal(t, "must not be empty", badRequest.GetFieldViolations()[0].GetDescription())
	})

	t.Run("not found carries resource info", func(t *testing.T) {
		_, err := handler.GetSection(context.Background(), connect.NewRequest(wrapperspb.String("declaration")))
		connectErr := requireConnectCode(t, err, connect.CodeNotFound)
		require.Len(t, connectErr.Details(), 1)
		msg, err := connectErr.Details()[0].Value()
		require.NoError(t, err)
		info, ok := msg.(*errdetails.ResourceInfo)
		require.True(t, ok)
		assert.Equal(t, "main_section", info.GetResourceType())
		assert.Equal(t, "declaration", info.GetResourceName())
	})
}

func TestContentHandler_Lookups(t *testing.T) {
	tree := newTestTree(t)
	handler := NewContentHandler(tree)
	ctx := context.Background()

	sections, err := handler.ListSections(ctx, connect.NewRequest(&emptypb.Empty{}))
	require.NoError(t, err)
	assert.Len(t, sections.Msg.GetValues(), len(tree.MainSections()))

	section, err := handler.GetSection(ctx, connect.NewRequest(wrapperspb.String("foundations")))
	require.NoError(t, err)
	assert.Equal(t, "Founding Documents", section.Msg.AsMap()["title"])
	assert.Equal(t, "/section/foundations", section.Msg.AsMap()["route"])

	breadcrumb, err := handler.GetBreadcrumb(ctx, connect.NewRequest(wrapperspb.String("constitution")))
	require.NoError(t, err)
	assert.Equal(t, []any{"Founding Documents", "Framing the Constitution", "Constitution of the United States"}, breadcrumb.Msg.AsSlice())

	route, err := handler.GetItemRoute(ctx, connect.NewRequest(wrapperspb.String("bill-of-rights")))
	require.NoError(t, err)
	assert.Equal(t, "/document/bill-of-rights", route.Msg.GetValue())

	// the classifier does not resolve ids
	route, err = handler.GetItemRoute(ctx, connect.NewRequest(wrapperspb.String("no-such-item")))
	require.NoError(t, err)
	assert.Equal(t, "/detail/no-such-item", route.Msg.GetValue())

	results, err := handler.Search(ctx, connect.NewRequest(wrapperspb.String("constitution")))
	require.NoError(t, err)
	assert.NotEmpty(t, results.Msg.GetValues())

	results, err = handler.Search(ctx, connect.NewRequest(wrapperspb.String("   ")))
	require.NoError(t, err)
	assert.Empty(t, results.Msg.GetValues())

	_, err = handler.Search(ctx, connect.NewRequest(wrapperspb.String(strings.Repeat("q", maxSearchQueryLength+1))))
	connectErr := requireConnectCode(t, err, connect.CodeInvalidArgument)
	assert.Contains(t, connectErr.Message(), "must be at most 256 characters")

	// the limit counts characters, not bytes
	results, err = handler.Search(ctx, connect.NewRequest(wrapperspb.String(strings.Repeat("é", maxSearchQueryLength))))
	require.NoError(t, err)
	assert.Empty(t, results.Msg.GetValues())
}

func TestLibraryHandler_Favorites(t *testing.T) {
	ctx := context.Background()
	handler := NewLibraryHandler(newTestTree(t), newTestLibrary(t, true), discardLogger())

	_, err := handler.AddFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	require.NoError(t, err)
	_, err = handler.AddFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	require.NoError(t, err)
	_, err = handler.AddFavorite(ctx, connect.NewRequest(wrapperspb.String("constitution")))
	require.NoError(t, err)

	_, err = handler.AddFavorite(ctx, connect.NewRequest(wrapperspb.String("no-such-item")))
	requireConnectCode(t, err, connect.CodeNotFound)
	_, err = handler.AddFavorite(ctx, connect.NewRequest(wrapperspb.String("")))
	requireConnectCode(t, err, connect.CodeInvalidArgument)

	list, err := handler.ListFavorites(ctx, connect.NewRequest(&emptypb.Empty{}))
	require.NoError(t, err)
	assert.Equal(t, []any{"declaration", "constitution"}, list.Msg.AsSlice())

	isFavorite, err := handler.IsFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	require.NoError(t, err)
	assert.True(t, isFavorite.Msg.GetValue())

	_, err = handler.RemoveFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	require.NoError(t, err)
	_, err = handler.RemoveFavorite(ctx, connect.NewRequest(wrapperspb.String("no-such-item")))
	require.NoError(t, err)

	isFavorite, err = handler.IsFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	require.NoError(t, err)
	assert.False(t, isFavorite.Msg.GetValue())
}

func TestLibraryHandler_History(t *testing.T) {
	ctx := context.Background()
	handler := NewLibraryHandler(newTestTree(t), newTestLibrary(t, true), discardLogger())

	entry, err := handler.RecordVisit(ctx, connect.NewRequest(wrapperspb.String("articles")))
	require.NoError(t, err)
	assert.Equal(t, "articles", entry.Msg.AsMap()["item_id"])
	assert.Equal(t, float64(1), entry.Msg.AsMap()["visit_count"])
	assert.Equal(t, "Articles of Confederation", entry.Msg.AsMap()["title"])

	_, err = handler.RecordVisit(ctx, connect.NewRequest(wrapperspb.String("civil-war")))
	require.NoError(t, err)
	entry, err = handler.RecordVisit(ctx, connect.NewRequest(wrapperspb.String("articles")))
	require.NoError(t, err)
	assert.Equal(t, float64(2), entry.Msg.AsMap()["visit_count"])

	_, err = handler.RecordVisit(ctx, connect.NewRequest(wrapperspb.String("no-such-item")))
	requireConnectCode(t, err, connect.CodeNotFound)

	historyList, err := handler.GetHistory(ctx, connect.NewRequest(&emptypb.Empty{}))
	require.NoError(t, err)
	values := historyList.Msg.AsSlice()
	require.Len(t, values, 2)
	assert.Equal(t, "articles", values[0].(map[string]any)["item_id"])
	assert.Equal(t, "civil-war", values[1].(map[string]any)["item_id"])

	_, err = handler.ClearHistory(ctx, connect.NewRequest(&emptypb.Empty{}))
	require.NoError(t, err)
	historyList, err = handler.GetHistory(ctx, connect.NewRequest(&emptypb.Empty{}))
	require.NoError(t, err)
	assert.Empty(t, historyList.Msg.GetValues())
}

func TestLibraryHandler_Preferences(t *testing.T) {
	ctx := context.Background()
	handler := NewLibraryHandler(newTestTree(t), newTestLibrary(t, true), discardLogger())

	got, err := handler.GetPreferences(ctx, connect.NewRequest(&emptypb.Empty{}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text_size": "medium", "theme_mode": "system"}, got.Msg.AsMap())

	tests := []struct {
		name      string
		fields    map[string]any
		want      map[string]any
		wantCode  connect.Code
		wantField string
	}{
		{
			name:   "updates text size",
			fields: map[string]any{"text_size": "large"},
			want:   map[string]any{"text_size": "large", "theme_mode": "system"},
		},
		{
			name:   "updates theme mode",
			fields: map[string]any{"theme_mode": "dark"},
			want:   map[string]any{"text_size": "large", "theme_mode": "dark"},
		},
		{
			name:   "updates both fields",
			fields: map[string]any{"text_size": "small", "theme_mode": "light"},
			want:   map[string]any{"text_size": "small", "theme_mode": "light"},
		},
		{
			name:      "rejects unknown values",
			fields:    map[string]any{"text_size": "huge"},
			wantCode:  connect.CodeInvalidArgument,
			wantField: "text_size",
		},
		{
			name:      "rejects the whole request when one value is invalid",
			fields:    map[string]any{"text_size": "large", "theme_mode": "neon"},
			wantCode:  connect.CodeInvalidArgument,
			wantField: "theme_mode",
		},
		{
			name:      "rejects non-string values",
			fields:    map[string]any{"text_size": 2},
			wantCode:  connect.CodeInvalidArgument,
			wantField: "text_size",
		},
		{
			name:      "rejects unknown fields",
			fields:    map[string]any{"font": "serif"},
			wantCode:  connect.CodeInvalidArgument,
			wantField: "font",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := handler.GetPreferences(ctx, connect.NewRequest(&emptypb.Empty{}))
			require.NoError(t, err)

			req, err := structpb.NewStruct(tt.fields)
			require.NoError(t, err)
			resp, err := handler.UpdatePreferences(ctx, connect.NewRequest(req))
			if tt.wantCode != 0 {
				connectErr := requireConnectCode(t, err, tt.wantCode)
				require.Len(t, connectErr.Details(), 1)
				msg, err := connectErr.Details()[0].Value()
				require.NoError(t, err)
				badRequest, ok := msg.(*errdetails.BadRequest)
				require.True(t, ok)
				assert.Equal(t, tt.wantField, badRequest.GetFieldViolations()[0].GetField())

				after, err := handler.GetPreferences(ctx, connect.NewRequest(&emptypb.Empty{}))
				require.NoError(t, err)
				assert.Equal(t, before.Msg.AsMap(), after.Msg.AsMap(), "a rejected request changes nothing")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Msg.AsMap())
		})
	}
}

func TestLibraryHandler_NotReady(t *testing.T) {
	ctx := context.Background()
	handler := NewLibraryHandler(newTestTree(t), newTestLibrary(t, false), discardLogger())

	_, err := handler.AddFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	requireConnectCode(t, err, connect.CodeUnavailable)
	_, err = handler.RecordVisit(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	requireConnectCode(t, err, connect.CodeUnavailable)

	isFavorite, err := handler.IsFavorite(ctx, connect.NewRequest(wrapperspb.String("declaration")))
	require.NoError(t, err)
	assert.False(t, isFavorite.Msg.GetValue())
}

func TestNewHTTPHandler(t *testing.T) {
	tree := newTestTree(t)
	srv := httptest.NewServer(NewHTTPHandler(tree, newTestLibrary(t, true), []string{"http://localhost:8081"}, discardLogger()))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	t.Run("content round trip", func(t *testing.T) {
		client := connect.NewClient[wrapperspb.StringValue, structpb.Struct](srv.Client(), srv.URL+ContentServiceFindItemProcedure)
		resp, err := client.CallUnary(ctx, connect.NewRequest(wrapperspb.String("bill-of-rights")))
		require.NoError(t, err)
		assert.Equal(t, "bill-of-rights", resp.Msg.AsMap()["item"].(map[string]any)["id"])

		_, err = client.CallUnary(ctx, connect.NewRequest(wrapperspb.String("no-such-item")))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("library round trip over JSON", func(t *testing.T) {
		add := connect.NewClient[wrapperspb.StringValue, emptypb.Empty](srv.Client(), srv.URL+LibraryServiceAddFavoriteProcedure, connect.WithProtoJSON())
		_, err := add.CallUnary(ctx, connect.NewRequest(wrapperspb.String("constitution")))
		require.NoError(t, err)

		isFavorite := connect.NewClient[wrapperspb.StringValue, wrapperspb.BoolValue](srv.Client(), srv.URL+LibraryServiceIsFavoriteProcedure, connect.WithProtoJSON())
		resp, err := isFavorite.CallUnary(ctx, connect.NewRequest(wrapperspb.String("constitution")))
		require.NoError(t, err)
		assert.True(t, resp.Msg.GetValue())
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+ContentServiceFindItemProcedure, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:8081")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "http://localhost:8081", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+ContentServiceFindItemProcedure, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://evil.example")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "civics_rpc_requests_total")
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
