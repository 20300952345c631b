package storage

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake-register"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return newFakeRepo(), nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Contains(t, ListKinds(), kind)
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage.kind=nope")
	assert.Contains(t, err.Error(), "registered: ")
}

// TestNew_FactoryError ensures factory errors surface unchanged.
func TestNew_FactoryError(t *testing.T) {
	t.Parallel()

	want := errors.New("boom")
	Register("fake-err", func(context.Context, Config) (Repository, error) { return nil, want })

	_, err := New(context.Background(), Config{Kind: "fake-err"})
	assert.ErrorIs(t, err, want)
}

// TestListKinds_SortedSnapshot verifies ListKinds returns a sorted copy.
func TestListKinds_SortedSnapshot(t *testing.T) {
	t.Parallel()

	Register("fake-b", func(context.Context, Config) (Repository, error) { return newFakeRepo(), nil })
	Register("fake-a", func(context.Context, Config) (Repository, error) { return newFakeRepo(), nil })

	kinds := ListKinds()
	assert.True(t, slices.IsSorted(kinds), "kinds not sorted: %v", kinds)

	kinds[0] = "mutated"
	assert.NotContains(t, ListKinds(), "mutated")
}

func TestOpenSQL_Unregistered(t *testing.T) {
	t.Parallel()

	_, err := OpenSQL(context.Background(), Config{Kind: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestRowFailure_Unwrap(t *testing.T) {
	t.Parallel()

	f := RowFailure{UserID: 7, Line: 3, Err: ErrDuplicateKey}
	assert.ErrorIs(t, f, ErrDuplicateKey)
	assert.Equal(t, "user_id=7 line=3: duplicate key", f.Error())
}
