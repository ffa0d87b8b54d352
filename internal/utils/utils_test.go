package utils_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/internal/utils"
)

func TestSyncMapAddIfAbsent(t *testing.T) {
	m := utils.NewSyncMap[string, int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if m.AddIfAbsent("key", i) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Delete("key"))
	assert.False(t, m.Delete("key"))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, utils.Dedupe([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, utils.Dedupe[string](nil))
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := utils.NewLogger("test").SetOutput(&buf).SetLevel(utils.WarnLevel)

	log.Info("hidden")
	log.WithField("chat", 42).Warn("shown %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN ] test - shown 1 chat=42")
	assert.False(t, strings.Contains(out, "\033["), "color must be off for non terminal writers")
}

func TestLoggerClonesShareOutput(t *testing.T) {
	var buf bytes.Buffer
	root := utils.NewLogger("root")
	child := root.WithPrefix("child")
	root.SetOutput(&buf)

	child.Error("boom")
	assert.Contains(t, buf.String(), "child - boom")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, utils.DebugLevel, utils.ParseLogLevel("DEBUG"))
	assert.Equal(t, utils.NoLevel, utils.ParseLogLevel("disable"))
	assert.Equal(t, utils.InfoLevel, utils.ParseLogLevel("whatever"))
}

func TestFetchRange(t *testing.T) {
	body := []byte("0123456789")
	ranged := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "f", time.Time{}, bytes.NewReader(body))
	}))
	defer ranged.Close()
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer plain.Close()

	for _, url := range []string{ranged.URL, plain.URL} {
		chunk, err := utils.FetchRange(context.Background(), nil, url, 4, 3)
		require.NoError(t, err)
		assert.Equal(t, "456", string(chunk))

		chunk, err = utils.FetchRange(context.Background(), nil, url, 8, 5)
		require.NoError(t, err)
		assert.Equal(t, "89", string(chunk))

		chunk, err = utils.FetchRange(context.Background(), nil, url, 20, 5)
		require.NoError(t, err)
		assert.Empty(t, chunk)
	}
}
