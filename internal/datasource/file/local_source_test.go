package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, payload string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(p, []byte(payload), 0o644))
	return p
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// TestLocalOpen covers success, missing file, directories and a pre-canceled
// context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		prepare         func(t *testing.T) string
		ctx             context.Context
		wantErrIs       error
		wantErrContains string
		wantContent     string
	}{
		{
			name:        "success_reads_content",
			prepare:     func(t *testing.T) string { return writeTemp(t, "user_id,name\n1,a\n") },
			ctx:         context.Background(),
			wantContent: "user_id,name\n1,a\n",
		},
		{
			name:            "missing_file_errors_with_wrapping",
			prepare:         func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.csv") },
			ctx:             context.Background(),
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name:            "directory_rejected",
			prepare:         func(t *testing.T) string { return t.TempDir() },
			ctx:             context.Background(),
			wantErrContains: "is a directory",
		},
		{
			name:      "pre_canceled_context_short_circuits",
			prepare:   func(t *testing.T) string { return writeTemp(t, "ignored") },
			ctx:       canceled(),
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			src := NewLocal(c.prepare(t))
			rc, err := src.Open(c.ctx)

			if c.wantErrIs != nil || c.wantErrContains != "" {
				require.Error(t, err)
				assert.Nil(t, rc)
				if c.wantErrIs != nil {
					assert.ErrorIs(t, err, c.wantErrIs)
				}
				if c.wantErrContains != "" {
					assert.ErrorContains(t, err, c.wantErrContains)
				}
				return
			}

			require.NoError(t, err)
			defer rc.Close()
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, c.wantContent, string(got))

			size, err := src.Size()
			require.NoError(t, err)
			assert.EqualValues(t, len(c.wantContent), size)
		})
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	existing := writeTemp(t, "old")

	_, err := Create(ctx, existing, false)
	assert.ErrorIs(t, err, ErrExists)
	b, _ := os.ReadFile(existing)
	assert.Equal(t, "old", string(b), "refused create must not truncate")

	w, err := Create(ctx, existing, true)
	require.NoError(t, err)
	_, err = io.WriteString(w, "new")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	b, _ = os.ReadFile(existing)
	assert.Equal(t, "new", string(b))

	fresh := filepath.Join(t.TempDir(), "fresh.csv")
	w, err = Create(ctx, fresh, false)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = Create(canceled(), filepath.Join(t.TempDir(), "x.csv"), false)
	assert.ErrorIs(t, err, context.Canceled)
}

// BenchmarkLocalOpen_Success measures the steady-state cost of opening a small file.
func BenchmarkLocalOpen_Success(b *testing.B) {
	p := filepath.Join(b.TempDir(), "data.csv")
	if err := os.WriteFile(p, []byte("payload"), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}

	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := rc.Close(); err != nil {
			b.Fatal(err)
		}
	}
}
