package catalog

import (
	"bytes"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

const skillFileName = "SKILL.md"

var frontmatterParser = goldmark.New(goldmark.WithExtensions(meta.Meta))

// LoadDir builds a catalog from a directory of skill directories on disk
func LoadDir(dir string) (*Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(err, "failed to read skills directory %s", dir)
	}
	return LoadFS(os.DirFS(dir), dir)
}

// LoadFS builds a catalog from the top-level directories of fsys. Each
// directory holding a SKILL.md is one skill: the frontmatter carries the
// record fields, and the body plus every other file in the directory become
// the payload. Directories without a SKILL.md are skipped. source names the
// catalog.
func LoadFS(fsys fs.FS, source string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read skills directory %s", source)
	}

	var skills []*skilltypes.Skill
	for _, entry := range entries {
		name := entry.Name()
		if info, err := fs.Stat(fsys, name); err != nil || !info.IsDir() {
			continue
		}
		if _, err := fs.Stat(fsys, path.Join(name, skillFileName)); err != nil {
			continue
		}

		sub, err := fs.Sub(fsys, name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open skill %s", name)
		}
		skill, err := parseSkill(sub, name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load skill from %s", path.Join(source, name))
		}
		skills = append(skills, skill)
	}

	return New(source, skills)
}

// parseSkill reads one skill directory. The id defaults to the directory name.
func parseSkill(fsys fs.FS, dirName string) (*skilltypes.Skill, error) {
	content, err := fs.ReadFile(fsys, skillFileName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	raw, err := frontmatter(content)
	if err != nil {
		return nil, err
	}
	if id, _ := raw["skill_id"].(string); id == "" {
		raw["skill_id"] = dirName
	}
	// the payload is the directory itself
	delete(raw, "progressive_files")

	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	if rec.Name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}

	if rec.ProgressiveFiles, err = readPayload(fsys); err != nil {
		return nil, err
	}
	rec.ProgressiveFiles[skillFileName] = extractBodyContent(string(content))

	return rec.Skill()
}

func frontmatter(content []byte) (map[string]any, error) {
	pctx := parser.NewContext()
	var discard bytes.Buffer
	if err := frontmatterParser.Convert(content, &discard, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	fields := meta.Get(pctx)
	if len(fields) == 0 {
		return nil, errors.New("missing frontmatter")
	}
	raw := make(map[string]any, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	return raw, nil
}

// readPayload collects every regular file except SKILL.md, keyed by
// slash-separated path. Hidden directories are skipped.
func readPayload(fsys fs.FS) (map[string]string, error) {
	payload := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && p != "." && strings.HasPrefix(d.Name(), "."):
			return fs.SkipDir
		case d.IsDir(), p == skillFileName:
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		payload[p] = string(data)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill payload")
	}
	return payload, nil
}

// extractBodyContent strips a leading --- delimited frontmatter block
func extractBodyContent(content string) string {
	lines := strings.SplitAfter(content, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return content
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.TrimLeft(strings.Join(lines[i+1:], ""), "\n")
		}
	}
	return content
}
