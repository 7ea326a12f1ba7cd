package tracker

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/job-matcher/internal/utils"
)

//go:embed schema.json
var storeSchema string

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(storeSchema))
})

// Store persists applications as a JSON object keyed by application id. Writes go
// through a temp file and a rename.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the store. A missing or empty file is an empty store; any
// unreadable or invalid content is ErrPersistenceCorrupt.
func (s *Store) Load() (map[string]*Application, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*Application{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistenceCorrupt, s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]*Application{}, nil
	}

	if err := validateStore(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersistenceCorrupt, s.path, err)
	}

	apps := make(map[string]*Application)
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistenceCorrupt, s.path, err)
	}
	for id, app := range apps {
		if app == nil || app.ID != id {
			return nil, fmt.Errorf("%w: %s: record under key %q has a different id", ErrPersistenceCorrupt, s.path, id)
		}
	}
	return apps, nil
}

func (s *Store) Save(apps map[string]*Application) error {
	data, err := json.MarshalIndent(apps, "", "  ")
	if err != nil {
		return fmt.Errorf("encode applications: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save applications: %w", err)
	}
	return nil
}

func validateStore(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load store schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return errors.New(strings.Join(msgs, "; "))
}
