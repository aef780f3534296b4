package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-verify/internal/model"
)

// DefaultFilePath is the cache file used when none is configured.
const DefaultFilePath = "research_cache.json"

// FilePersister stores the cache as a JSON object keyed by URL.
type FilePersister struct {
	path string
}

// NewFilePersister creates a FilePersister for path.
func NewFilePersister(path string) *FilePersister {
	if path == "" {
		path = DefaultFilePath
	}
	return &FilePersister{path: path}
}

// Load reads the file. A missing file is an empty cache.
func (p *FilePersister) Load(_ context.Context) ([]model.Article, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read %s", p.path)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var byURL map[string]model.Article
	if err := json.Unmarshal(data, &byURL); err != nil {
		return nil, eris.Wrapf(err, "cache: decode %s", p.path)
	}

	out := make([]model.Article, 0, len(byURL))
	for url, a := range byURL {
		if a.URL == "" {
			a.URL = url
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// Save writes all articles to a temp file and renames it over the target,
// so readers never see a partial file.
func (p *FilePersister) Save(_ context.Context, articles []model.Article) error {
	byURL := make(map[string]model.Article, len(articles))
	for _, a := range articles {
		byURL[a.URL] = a
	}
	data, err := json.MarshalIndent(byURL, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cache: encode")
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp file")
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return eris.Wrapf(err, "cache: replace %s", p.path)
	}
	return nil
}
