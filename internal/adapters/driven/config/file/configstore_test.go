package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.NoFileExists(t, store.Path(), "nothing is written until a value is set")
}

func TestNewConfigStore_NestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	require.NoError(t, store.Set("llm.model", "llama3.1:8b"))
	assert.FileExists(t, store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := NewConfigStore(filepath.Join(blocker, "sub"))
	assert.Error(t, err)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[llm\nprovider ="), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_WritesTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SetMany(map[string]any{
		"llm.provider":                    "ollama",
		"llm.model":                       "llama3.1:8b",
		"storage.max_connections":         5,
		"pipeline.report_timeout_seconds": 60,
	}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[llm]")
	assert.Contains(t, string(raw), "[storage]")
	assert.NotContains(t, string(raw), `"llm.provider"`)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("notify.webhook_url", "https://hooks.slack.test/x"))
	require.NoError(t, store.Set("storage.max_connections", 8))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.slack.test/x", reopened.GetString("notify.webhook_url"))
	assert.Equal(t, 8, reopened.GetInt("storage.max_connections"))
}

func TestConfigStore_HandEditedFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedding]
provider = "openai"

[pipeline]
analysis_timeout_seconds = 45.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, 45, store.GetInt("pipeline.analysis_timeout_seconds"))
	assert.Equal(t, "", store.GetString("pipeline.analysis_timeout_seconds"))
	assert.Equal(t, 0, store.GetInt("embedding.provider"))
}

func TestConfigStore_ConflictingKeysRejected(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "a"))

	err = store.Set("llm", "flat")
	assert.Error(t, err)

	_, ok := store.Get("llm")
	assert.False(t, ok, "failed writes leave memory unchanged")
	assert.Equal(t, "a", store.GetString("llm.model"))
}

func TestConfigStore_Load_ReplacesValues(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "a"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[llm]\nmodel = \"b\"\n"), 0600))
	require.NoError(t, store.Load())
	assert.Equal(t, "b", store.GetString("llm.model"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())
	_, ok := store.Get("llm.model")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("section.key%d", i)
			assert.NoError(t, store.Set(key, i))
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()

	for i := range 10 {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("section.key%d", i)))
	}
}

func TestNestMap(t *testing.T) {
	tree, err := nestMap(map[string]any{"a.b.c": 1, "a.d": "x", "top": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a":   map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"top": true,
	}, tree)

	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "top": true}, flattenMap(tree, ""))
}
