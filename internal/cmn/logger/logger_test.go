package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("writes text records to the extra writer", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		l := New(WithQuiet(), WithWriter(&buf))
		l.Info("License validated", "result", "VALID")

		assert.Contains(t, buf.String(), "msg=\"License validated\"")
		assert.Contains(t, buf.String(), "result=VALID")
	})

	t.Run("writes json records when requested", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		l := New(WithQuiet(), WithWriter(&buf), WithFormat("json"))
		l.Warn("Sync failed", "domain", "licenses.example.com")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "Sync failed", rec["msg"])
		assert.Equal(t, "WARN", rec["level"])
		assert.Equal(t, "licenses.example.com", rec["domain"])
	})

	t.Run("debug records are dropped unless debug is enabled", func(t *testing.T) {
		t.Parallel()

		var quiet, verbose bytes.Buffer
		New(WithQuiet(), WithWriter(&quiet)).Debug("hidden")
		New(WithQuiet(), WithWriter(&verbose), WithDebug()).Debug("shown")

		assert.Empty(t, quiet.String())
		assert.Contains(t, verbose.String(), "shown")
	})

	t.Run("concurrent writes do not interleave lines", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		l := New(WithQuiet(), WithWriter(&buf), WithFormat("json"))

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.With("component", "sync").Info("tick")
			}()
		}
		wg.Wait()

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 20)
		for _, line := range lines {
			var rec map[string]any
			require.NoError(t, json.Unmarshal(line, &rec))
		}
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(WithQuiet(), WithWriter(&buf))
	ctx := WithLogger(context.Background(), l)

	Info(ctx, "from context")
	assert.Contains(t, buf.String(), "from context")

	assert.NotNil(t, FromContext(context.Background()))
}
