// Package file serves postings from a local JSON file. It backs offline runs and
// the --jobs flag of the match command.
package file

import (
	"context"
	"fmt"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/providers"
)

const Name = "file"

type Config struct {
	Path string `mapstructure:"path" json:"path,omitempty"`
}

type Provider struct {
	path string
}

func New(cfg Config) *Provider {
	return &Provider{path: cfg.Path}
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.path == "" {
		return nil, fmt.Errorf("%w: no postings file configured", providers.ErrProviderUnavailable)
	}

	all, err := jobs.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err)
	}

	var out []*jobs.Posting
	for _, posting := range all {
		if posting == nil || !q.Matches(posting.Title, posting.Description, posting.Location, posting.Remote) {
			continue
		}
		if posting.Provider == "" {
			posting.Provider = Name
		}
		out = append(out, posting)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
