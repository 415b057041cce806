package annotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMissingSidecarIsEmpty(t *testing.T) {
	store := Store{Dir: t.TempDir()}

	got, err := store.Load("nothing.png")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStoreRejectsInvalidSidecars(t *testing.T) {
	tests := map[string]string{
		"empty file":       ``,
		"null":             `null`,
		"object":           `{"label":0}`,
		"unknown field":    `[{"label":0,"c1":[0.2,0.3],"c2":[0.6,0.1],"color":"red"}]`,
		"missing label":    `[{"c1":[0.2,0.3],"c2":[0.6,0.1]}]`,
		"missing corner":   `[{"label":0,"c1":[0.2,0.3]}]`,
		"short corner":     `[{"label":0,"c1":[0.2],"c2":[0.6,0.1]}]`,
		"long corner":      `[{"label":0,"c1":[0.2,0.3,0.4],"c2":[0.6,0.1]}]`,
		"out of range":     `[{"label":0,"c1":[1.2,0.3],"c2":[0.6,0.1]}]`,
		"negative":         `[{"label":0,"c1":[0.2,0.3],"c2":[-0.1,0.1]}]`,
		"float label":      `[{"label":0.5,"c1":[0.2,0.3],"c2":[0.6,0.1]}]`,
		"trailing values":  `[] []`,
		"trailing bracket": `[]]`,
		"trailing brace":   `[{"label":0,"c1":[0.2,0.3],"c2":[0.6,0.1]}]}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			store := Store{Dir: t.TempDir()}
			require.NoError(t, os.WriteFile(store.Path("p.png"), []byte(content), 0o644))

			_, err := store.Load("p.png")
			assert.True(t, errors.Is(err, ErrInvalidSidecar), "got %v", err)
		})
	}
}

func TestStoreSaveReplacesFile(t *testing.T) {
	store := Store{Dir: t.TempDir()}

	first := []Record{{Label: 1, C1: Corner{0, 0}, C2: Corner{0.5, 0.5}}}
	require.NoError(t, store.Save("p.png", first))

	second := append(first, Record{Label: 2, C1: Corner{0.5, 0.5}, C2: Corner{1, 1}})
	require.NoError(t, store.Save("p.png", second))

	got, err := store.Load("p.png")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err := os.ReadDir(store.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "p.png.json", entries[0].Name())
}

func TestStorePathUsesBaseName(t *testing.T) {
	store := Store{Dir: "/data/elem_gen"}
	assert.Equal(t, filepath.Join("/data/elem_gen", "book-3.png.json"), store.Path("/cache/book-3.png"))
}

func TestStoreIdentities(t *testing.T) {
	store := Store{Dir: t.TempDir()}
	require.NoError(t, store.Save("b-1.png", nil))
	require.NoError(t, store.Save("a-0.png", nil))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "notes.txt"), nil, 0o644))

	ids, err := store.Identities()
	require.NoError(t, err)
	assert.Equal(t, []string{"a-0.png", "b-1.png"}, ids)

	data, err := os.ReadFile(store.Path("a-0.png"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestStoreAcceptsTrailingWhitespace(t *testing.T) {
	store := Store{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(store.Path("p.png"), []byte("[{\"label\":2,\"c1\":[0.2,0.3],\"c2\":[0.6,0.1]}]\n\n"), 0o644))

	records, err := store.Load("p.png")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Label)
}
