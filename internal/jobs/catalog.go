package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spigell/job-matcher/internal/utils"
)

const CatalogFile = "postings.json"

// Catalog persists postings found by search so later commands can match, generate
// and apply without querying providers again.
type Catalog struct {
	mu   sync.Mutex
	path string
}

func NewCatalog(dataDir string) *Catalog {
	return &Catalog{path: filepath.Join(dataDir, CatalogFile)}
}

func (c *Catalog) Path() string {
	return c.path
}

// Load returns the stored postings. A missing catalog is empty.
func (c *Catalog) Load() (*Postings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.load()
}

func (c *Catalog) load() (*Postings, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Postings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(data) == 0 {
		return &Postings{}, nil
	}

	var postings Postings
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", c.path, err)
	}
	return &postings, nil
}

// Add merges postings into the catalog and returns how many were new.
func (c *Catalog) Add(items []*Posting) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	postings, err := c.load()
	if err != nil {
		return 0, err
	}
	added := postings.Merge(items)

	data, err := json.MarshalIndent(postings, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode catalog: %w", err)
	}
	if err := utils.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write catalog: %w", err)
	}
	return added, nil
}

// ReadFile loads postings from a JSON file holding either a list of postings or a
// catalog object. Null entries are skipped.
func ReadFile(path string) ([]*Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read postings %s: %w", path, err)
	}

	var list []*Posting
	if err := json.Unmarshal(data, &list); err != nil {
		var wrapped Postings
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode postings %s: %w", path, err)
		}
		list = wrapped.Items
	}

	out := list[:0]
	for _, posting := range list {
		if posting != nil {
			out = append(out, posting)
		}
	}
	return out, nil
}
