// Package greenhouse reads public Greenhouse job boards.
package greenhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/providers"
)

const (
	Name   = "greenhouse"
	apiURL = "https://boards-api.greenhouse.io/v1/boards"
)

type Config struct {
	Boards []string `mapstructure:"boards" json:"boards,omitempty"`
}

type Client struct {
	boards     []string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(cfg Config, l *zap.Logger) *Client {
	return &Client{
		boards:     cfg.Boards,
		logger:     logger.WithFields(l).With(zap.String(logger.FieldJobProvider, Name)),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIURL:     apiURL,
	}
}

func (c *Client) Name() string {
	return Name
}

type boardResponse struct {
	Jobs []job `json:"jobs"`
}

type job struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	UpdatedAt   string `json:"updated_at"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

// Search reads every configured board. A failing board is skipped as long as
// another one answered.
func (c *Client) Search(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	if len(c.boards) == 0 {
		return nil, fmt.Errorf("%w: no boards configured", providers.ErrProviderUnavailable)
	}

	var (
		postings []*jobs.Posting
		errs     []error
	)
	for _, board := range c.boards {
		found, err := c.board(ctx, board, q)
		if err != nil {
			c.logger.Warn("board search failed", zap.String("board", board), zap.Error(err))
			errs = append(errs, fmt.Errorf("board %s: %w", board, err))
			continue
		}
		postings = append(postings, found...)
	}

	if len(errs) == len(c.boards) {
		return nil, errors.Join(errs...)
	}
	return postings, nil
}

func (c *Client) board(ctx context.Context, board string, q providers.Query) ([]*jobs.Posting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", c.APIURL, board)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("make request", zap.String("url", url))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.StatusError(resp)
	}

	var body boardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}

	var postings []*jobs.Posting
	for _, j := range body.Jobs {
		p := j.toPosting(board)
		if !q.Matches(p.Title, p.Description, p.Location, p.Remote) {
			continue
		}
		postings = append(postings, p)
		if q.Limit > 0 && len(postings) >= q.Limit {
			break
		}
	}
	return postings, nil
}

func (j job) toPosting(board string) *jobs.Posting {
	// Greenhouse returns the job body as escaped HTML.
	description := providers.PlainText(html.UnescapeString(j.Content))

	p := &jobs.Posting{
		Provider:    Name,
		ID:          strconv.FormatInt(j.ID, 10),
		Title:       j.Title,
		Company:     board,
		Location:    j.Location.Name,
		Description: description,
		Remote:      strings.Contains(strings.ToLower(j.Location.Name), "remote"),
		URL:         j.AbsoluteURL,
	}
	if t, err := time.Parse(time.RFC3339, j.UpdatedAt); err == nil {
		p.PostedAt = t.UTC()
	}
	return p
}
