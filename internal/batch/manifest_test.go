package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsight/inspect-cli/internal/model"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest_YAML(t *testing.T) {
	path := writeManifest(t, "batch.yaml", `
name: evening run
items:
  - id: pair-1
    part_type: bracket
    complexity: simple
    reference: photos/ref1.jpg
    part: photos/part1.jpg
  - part_type: housing
    reference: /abs/ref2.jpg
    part: /abs/part2.jpg
`)

	items, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	base := filepath.Dir(path)
	assert.Equal(t, "pair-1", items[0].ID)
	assert.Equal(t, "bracket", items[0].PartType)
	assert.Equal(t, model.ComplexitySimple, items[0].Complexity)
	assert.Equal(t, filepath.Join(base, "photos", "ref1.jpg"), items[0].ReferencePath)
	assert.Equal(t, filepath.Join(base, "photos", "part1.jpg"), items[0].PartPath)

	// Absolute paths pass through; missing complexity defaults to moderate.
	assert.Equal(t, model.ComplexityModerate, items[1].Complexity)
	assert.Equal(t, "/abs/ref2.jpg", items[1].ReferencePath)
}

func TestLoadManifest_CSV(t *testing.T) {
	path := writeManifest(t, "batch.csv",
		"id,part_type,complexity,reference,part\n"+
			"pair-1, bracket, complex, ref1.jpg, part1.jpg\n"+
			", housing, , ref2.jpg, part2.jpg\n")

	items, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "pair-1", items[0].ID)
	assert.Equal(t, model.ComplexityComplex, items[0].Complexity)
	assert.Equal(t, "housing", items[1].PartType)
	assert.Equal(t, model.ComplexityModerate, items[1].Complexity)
}

func TestLoadManifest_CSVWithoutHeader(t *testing.T) {
	path := writeManifest(t, "batch.csv",
		"pair-1,bracket,simple,ref1.jpg,part1.jpg\n")

	items, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "pair-1", items[0].ID)
}

func TestLoadManifest_UnknownComplexity(t *testing.T) {
	path := writeManifest(t, "batch.yaml", `
items:
  - part_type: bracket
    complexity: impossible
    reference: ref.jpg
    part: part.jpg
`)

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown complexity")
}

func TestLoadManifest_MissingPaths(t *testing.T) {
	path := writeManifest(t, "batch.yaml", `
items:
  - part_type: bracket
    reference: ref.jpg
`)

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing reference or part path")
}

func TestLoadManifest_Empty(t *testing.T) {
	path := writeManifest(t, "batch.yaml", "items: []\n")

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no items")
}

func TestLoadManifest_UnsupportedExtension(t *testing.T) {
	path := writeManifest(t, "batch.txt", "whatever")

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest format")
}

func TestLoadManifest_FileNotFound(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadManifest_CSVShortRow(t *testing.T) {
	path := writeManifest(t, "batch.csv", "pair-1,bracket,simple\n")

	_, err := LoadManifest(path)
	require.Error(t, err)
}
