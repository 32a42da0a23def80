package catalog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/yaml.v3"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Format is a catalog file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads, validates and decodes a catalog file. The read takes a
// shared advisory lock so a concurrent WriteFile is never observed half done.
func LoadFile(path string) (*Catalog, error) {
	data, err := lockedfile.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	skills, err := ParseDocument(data, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalog %s", path)
	}
	return New(path, skills)
}

// ParseDocument decodes and schema-validates catalog bytes
func ParseDocument(data []byte, format Format) ([]*skilltypes.Skill, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("catalog is empty")
	}

	var doc map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "invalid YAML")
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "invalid JSON")
		}
	}

	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	return skillsFromDocument(doc)
}

// EncodeDocument renders a catalog in the given format
func EncodeDocument(c *Catalog, format Format) ([]byte, error) {
	doc := Document{Skills: make([]Record, 0, c.Len())}
	for _, s := range c.Skills() {
		doc.Skills = append(doc.Skills, RecordFromSkill(s))
	}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, errors.Wrap(err, "failed to encode catalog as YAML")
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, "failed to flush YAML encoder")
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode catalog as JSON")
		}
		return append(data, '\n'), nil
	}
}

// WriteFile writes a catalog under an exclusive advisory lock, in the format
// implied by the file extension.
func WriteFile(path string, c *Catalog) error {
	data, err := EncodeDocument(c, FormatFromPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create catalog directory")
		}
	}
	if err := lockedfile.Write(path, bytes.NewReader(data), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write catalog %s", path)
	}
	return nil
}
