package batch

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/partsight/inspect-cli/internal/model"
)

// Manifest is a batch work list loaded from disk.
type Manifest struct {
	Name  string          `yaml:"name,omitempty"`
	Items []ManifestEntry `yaml:"items"`
}

// ManifestEntry is one photo pair in a manifest.
type ManifestEntry struct {
	ID         string `yaml:"id,omitempty"`
	PartType   string `yaml:"part_type"`
	Complexity string `yaml:"complexity,omitempty"`
	Reference  string `yaml:"reference"`
	Part       string `yaml:"part"`
}

// LoadManifest reads a YAML or CSV manifest and converts it to pair items.
// Relative photo paths resolve against the manifest's directory.
func LoadManifest(path string) ([]model.PairItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read manifest %s", path)
	}

	var entries []ManifestEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, eris.Wrapf(err, "batch: parse manifest %s", path)
		}
		entries = m.Items
	case ".csv":
		entries, err = parseCSV(strings.NewReader(string(data)))
		if err != nil {
			return nil, eris.Wrapf(err, "batch: parse manifest %s", path)
		}
	default:
		return nil, eris.Errorf("batch: unsupported manifest format %s", filepath.Ext(path))
	}

	if len(entries) == 0 {
		return nil, eris.Errorf("batch: manifest %s has no items", path)
	}

	base := filepath.Dir(path)
	items := make([]model.PairItem, 0, len(entries))
	for i, e := range entries {
		if e.Reference == "" || e.Part == "" {
			return nil, eris.Errorf("batch: manifest item %d is missing reference or part path", i+1)
		}
		complexity := model.Complexity(e.Complexity)
		if e.Complexity == "" {
			complexity = model.ComplexityModerate
		} else if !complexity.Valid() {
			return nil, eris.Errorf("batch: manifest item %d has unknown complexity %q", i+1, e.Complexity)
		}
		items = append(items, model.PairItem{
			ID:            e.ID,
			PartType:      e.PartType,
			Complexity:    complexity,
			ReferencePath: resolve(base, e.Reference),
			PartPath:      resolve(base, e.Part),
		})
	}
	return items, nil
}

// parseCSV reads rows of the form: id, part_type, complexity, reference, part.
// A header row is detected by its first column and skipped.
func parseCSV(r io.Reader) ([]ManifestEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "read csv")
	}

	var entries []ManifestEntry
	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "id") {
			continue
		}
		if len(row) < 5 {
			return nil, eris.Errorf("csv row %d: want 5 columns (id, part_type, complexity, reference, part), got %d", i+1, len(row))
		}
		entries = append(entries, ManifestEntry{
			ID:         strings.TrimSpace(row[0]),
			PartType:   strings.TrimSpace(row[1]),
			Complexity: strings.TrimSpace(row[2]),
			Reference:  strings.TrimSpace(row[3]),
			Part:       strings.TrimSpace(row[4]),
		})
	}
	return entries, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
