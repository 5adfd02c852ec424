package preferences

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_storage "github.com/at-ishikawa/civics/internal/mocks/storage"
	"github.com/at-ishikawa/civics/internal/persist"
	"github.com/at-ishikawa/civics/internal/storage"
)

func newTestStore(t *testing.T, s storage.Storage) *Store {
	t.Helper()
	store := NewStore(s, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func TestStore_Defaults(t *testing.T) {
	store := newTestStore(t, storage.NewMemoryStorage())
	assert.Equal(t, Preferences{TextSize: TextSizeMedium, ThemeMode: ThemeModeSystem}, store.Get())
	assert.ErrorIs(t, store.SetTextSize(TextSizeLarge), persist.ErrNotReady)

	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, Defaults(), store.Get())
}

func TestStore_Set(t *testing.T) {
	tests := []struct {
		name    string
		run     func(store *Store) error
		want    Preferences
		wantErr error
	}{
		{
			name: "text size",
			run:  func(store *Store) error { return store.SetTextSize(TextSizeLarge) },
			want: Preferences{TextSize: TextSizeLarge, ThemeMode: ThemeModeSystem},
		},
		{
			name: "theme mode",
			run:  func(store *Store) error { return store.SetThemeMode(ThemeModeDark) },
			want: Preferences{TextSize: TextSizeMedium, ThemeMode: ThemeModeDark},
		},
		{
			name:    "unknown text size",
			run:     func(store *Store) error { return store.SetTextSize("huge") },
			want:    Defaults(),
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown theme mode",
			run:     func(store *Store) error { return store.SetThemeMode("sepia") },
			want:    Defaults(),
			wantErr: ErrInvalidValue,
		},
		{
			name: "update both fields",
			run: func(store *Store) error {
				return store.Update(Preferences{TextSize: TextSizeSmall, ThemeMode: ThemeModeLight})
			},
			want: Preferences{TextSize: TextSizeSmall, ThemeMode: ThemeModeLight},
		},
		{
			name: "update keeps empty fields",
			run:  func(store *Store) error { return store.Update(Preferences{ThemeMode: ThemeModeDark}) },
			want: Preferences{TextSize: TextSizeMedium, ThemeMode: ThemeModeDark},
		},
		{
			name: "update with one invalid field changes nothing",
			run: func(store *Store) error {
				return store.Update(Preferences{TextSize: TextSizeLarge, ThemeMode: "neon"})
			},
			want:    Defaults(),
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, storage.NewMemoryStorage())
			require.NoError(t, store.Load(context.Background()))

			err := tt.run(store)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, store.Get())
		})
	}
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	s := storage.NewMemoryStorage()

	first := newTestStore(t, s)
	require.NoError(t, first.Load(context.Background()))
	require.NoError(t, first.SetTextSize(TextSizeSmall))
	require.NoError(t, first.SetThemeMode(ThemeModeLight))
	require.NoError(t, first.Close(context.Background()))

	raw, found, err := s.Load(context.Background(), StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"text_size":"small","theme_mode":"light"}`, raw)

	second := newTestStore(t, s)
	require.NoError(t, second.Load(context.Background()))
	assert.Equal(t, Preferences{TextSize: TextSizeSmall, ThemeMode: ThemeModeLight}, second.Get())
}

func TestStore_LoadIgnoresUnknownValues(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock_storage.NewMockStorage(ctrl)
	s.EXPECT().Load(gomock.Any(), StorageKey).Return(`{"text_size":"giant","theme_mode":"dark"}`, true, nil)

	store := newTestStore(t, s)
	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, Preferences{TextSize: TextSizeMedium, ThemeMode: ThemeModeDark}, store.Get())

	// unchanged values are not written
	require.NoError(t, store.SetThemeMode(ThemeModeDark))
	require.NoError(t, store.Flush(context.Background()))
}

func TestStore_RejectedUpdateIsNotPersisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock_storage.NewMockStorage(ctrl)
	s.EXPECT().Load(gomock.Any(), StorageKey).Return("", false, nil)

	store := newTestStore(t, s)
	require.NoError(t, store.Load(context.Background()))

	err := store.Update(Preferences{TextSize: TextSizeLarge, ThemeMode: "neon"})
	assert.ErrorIs(t, err, ErrInvalidValue)
	require.NoError(t, store.Flush(context.Background()))
	assert.Equal(t, Defaults(), store.Get())
}
