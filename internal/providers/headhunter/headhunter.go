// Package headhunter searches vacancies on hh.ru.
package headhunter

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/providers"
)

const (
	Name   = "headhunter"
	apiURL = "https://api.hh.ru"
	// Max value for search per page.
	perPage = 100
)

const userAgent = "spigell/job-matcher (spigelly@gmail.com)"

type Config struct {
	Token     string `mapstructure:"token" json:"token,omitempty"`
	TokenFile string `mapstructure:"token-file" json:"token-file,omitempty"`
	UserAgent string `mapstructure:"user-agent" json:"user-agent,omitempty"`
	Areas     []int  `mapstructure:"area" json:"area,omitempty"`
}

type Client struct {
	token      string
	areas      []int
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New builds a client. The token is optional, vacancy search works anonymously.
func New(cfg Config, token string, l *zap.Logger) *Client {
	c := &Client{
		token:  token,
		areas:  cfg.Areas,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger.WithFields(l).With(zap.String(logger.FieldJobProvider, Name)),
		UserAgent: userAgent,
	}
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return c
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) Search(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	params := &SearchParams{
		Text:  q.Text,
		Areas: c.areas,
	}
	if q.Remote {
		params.Schedules = []string{scheduleRemote}
	}

	vacancies, err := c.search(ctx, params, q.Limit)
	if err != nil {
		return nil, err
	}

	postings := make([]*jobs.Posting, 0, vacancies.Len())
	for _, v := range vacancies.Items {
		// Text is matched by hh.ru itself.
		if !q.Matches("", "", v.Area.Name, v.Remote()) {
			continue
		}
		postings = append(postings, v.ToPosting())
	}
	return postings, nil
}
