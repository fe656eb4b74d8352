package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// fakeExtractor skips esbuild: the "script" is the file path itself, and
// respond decides what the child would have sent.
func fakeExtractor(t *testing.T, respond func(ctx context.Context, file string) ([]byte, error)) *Extractor {
	t.Helper()
	return New(Options{
		Runtime: RuntimeFunc(func(ctx context.Context, script []byte) ([]byte, error) {
			return respond(ctx, string(script))
		}),
		Timeout: time.Second,
		bundle:  func(file string) ([]byte, error) { return []byte(file), nil },
		exports: func(string) ([]string, error) { return []string{"Meta", "default"}, nil },
	})
}

func TestExtract(t *testing.T) {
	ex := fakeExtractor(t, func(context.Context, string) ([]byte, error) {
		return []byte(`{"ok":true,"hasMeta":true,"meta":{"path":"/","layout":null},"hasDefault":true,"defaultName":"Home","displayName":"HomePage"}`), nil
	})

	rec, err := ex.Extract(context.Background(), "/app/src/Home.page.tsx")
	require.NoError(t, err)

	assert.Equal(t, "/app/src/Home.page.tsx", rec.FilePath)
	assert.Equal(t, map[string]any{"path": "/", "layout": nil}, rec.Meta)
	assert.True(t, rec.HasDefaultExport)
	assert.Equal(t, "Home", rec.DefaultExportName)
	assert.Equal(t, "HomePage", rec.DefaultExportDisplayName)
	assert.Equal(t, []string{"Meta", "default"}, rec.Exports)
	assert.True(t, pagefile.Valid(rec))
}

func TestExtractMissingMeta(t *testing.T) {
	ex := fakeExtractor(t, func(context.Context, string) ([]byte, error) {
		return []byte(`{"ok":true,"hasMeta":false,"hasDefault":true}`), nil
	})

	rec, err := ex.Extract(context.Background(), "/app/src/X.page.tsx")
	require.NoError(t, err)
	assert.Nil(t, rec.Meta)
	assert.Equal(t, []string{pagefile.ReasonMissingMeta}, pagefile.Validate(rec))
}

func TestExtractNullMeta(t *testing.T) {
	ex := fakeExtractor(t, func(context.Context, string) ([]byte, error) {
		return []byte(`{"ok":true,"hasMeta":true,"meta":null,"hasDefault":true}`), nil
	})

	rec, err := ex.Extract(context.Background(), "/app/src/X.page.tsx")
	require.NoError(t, err)
	assert.Nil(t, rec.Meta)
	assert.Equal(t, []string{pagefile.ReasonMissingMeta}, pagefile.Validate(rec))
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(ctx context.Context, file string) ([]byte, error)
		want    string
	}{
		{
			name: "runtime error",
			respond: func(context.Context, string) ([]byte, error) {
				return nil, errors.New("node: exit status 1: ReferenceError: window is not defined")
			},
			want: "window is not defined",
		},
		{
			name: "script reported error",
			respond: func(context.Context, string) ([]byte, error) {
				return []byte(`{"ok":false,"error":"TypeError: boom"}`), nil
			},
			want: "TypeError: boom",
		},
		{
			name: "malformed response",
			respond: func(context.Context, string) ([]byte, error) {
				return []byte(`{"ok":`), nil
			},
			want: "malformed sandbox response",
		},
		{
			name: "no response",
			respond: func(context.Context, string) ([]byte, error) {
				return nil, ErrNoResponse
			},
			want: "without a response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := fakeExtractor(t, tt.respond)
			_, err := ex.Extract(context.Background(), "/app/src/Bad.page.tsx")
			require.Error(t, err)

			assert.True(t, pferrors.Is(err, pferrors.CodeUnableToExtractMeta))
			pe := pferrors.FromError(err)
			assert.Equal(t, "/app/src/Bad.page.tsx", pe.SourceFile())
			assert.Contains(t, pe.Detail, tt.want)
		})
	}
}

func TestExtractTimeout(t *testing.T) {
	ex := fakeExtractor(t, func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ex.opts.Timeout = 20 * time.Millisecond

	_, err := ex.Extract(context.Background(), "/app/src/Slow.page.tsx")
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeUnableToExtractMeta))
	assert.Contains(t, pferrors.FromError(err).Detail, "timed out after 20ms")
}

func TestExtractKeepsBundleError(t *testing.T) {
	ex := fakeExtractor(t, nil)
	ex.opts.bundle = func(string) ([]byte, error) {
		return nil, pferrors.UnableToExtractMeta("/app/src/A.page.tsx", "/app/src/Nav.tsx", errors.New("esbuild: Unexpected \"}\""))
	}

	_, err := ex.Extract(context.Background(), "/app/src/A.page.tsx")
	require.Error(t, err)
	pe := pferrors.FromError(err)
	assert.Equal(t, "/app/src/Nav.tsx", pe.Cause)
	assert.Contains(t, pe.Message, "caused by /app/src/Nav.tsx")
}

func TestExtractAll(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	ex := fakeExtractor(t, func(_ context.Context, file string) ([]byte, error) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()

		if strings.Contains(file, "Broken") {
			return nil, errors.New("boom")
		}
		return []byte(`{"ok":true,"hasMeta":true,"meta":{},"hasDefault":true}`), nil
	})
	ex.opts.Concurrency = 2

	paths := []string{
		"/app/src/A.page.tsx",
		"/app/src/Broken.page.tsx",
		"/app/src/C.page.tsx",
		"/app/src/D.page.tsx",
		"/app/src/E.page.tsx",
	}
	results := ex.ExtractAll(context.Background(), paths)

	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		if i == 1 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, paths[i], r.Record.FilePath)
	}
	assert.LessOrEqual(t, maxSeen, 2)
}

func TestExtractAllCancelled(t *testing.T) {
	var calls atomic.Int32
	ex := fakeExtractor(t, func(ctx context.Context, _ string) ([]byte, error) {
		calls.Add(1)
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ex.ExtractAll(ctx, []string{"/a.page.tsx", "/b.page.tsx"})
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestDecode(t *testing.T) {
	rec, err := decode("/x", []byte(`{"ok":true,"hasMeta":true,"meta":{"n":1},"hasDefault":false}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 1.0}, rec.Meta)
	assert.False(t, rec.HasDefaultExport)

	_, err = decode("/x", []byte(`{"ok":false}`))
	assert.EqualError(t, err, "extraction failed")
}

func TestSummarize(t *testing.T) {
	stderr := `/tmp/pagefiles-1.cjs:3
throw new Error("boom");
^

Error: boom
    at Object.<anonymous> (/tmp/pagefiles-1.cjs:3:7)
    at Module._compile (node:internal/modules/cjs/loader:1256:14)

Node.js v20.11.0
`
	assert.Equal(t, "^\nError: boom", summarize(stderr, 2))
	assert.Equal(t, "a\nb", summarize("a\r\n\nb\n", 10))
}

func TestLimitedWriter(t *testing.T) {
	var b strings.Builder
	w := &limitedWriter{w: &b, n: 4}

	n, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = w.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, "abcd", b.String())
}
