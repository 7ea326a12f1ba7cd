// Package lever reads public Lever postings.
package lever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/providers"
)

const (
	Name   = "lever"
	apiURL = "https://api.lever.co/v0/postings"
)

type Config struct {
	Companies []string `mapstructure:"companies" json:"companies,omitempty"`
}

type Client struct {
	companies  []string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(cfg Config, l *zap.Logger) *Client {
	return &Client{
		companies:  cfg.Companies,
		logger:     logger.WithFields(l).With(zap.String(logger.FieldJobProvider, Name)),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIURL:     apiURL,
	}
}

func (c *Client) Name() string {
	return Name
}

type posting struct {
	ID               string `mapstructure:"id"`
	Text             string `mapstructure:"text"`
	HostedURL        string `mapstructure:"hostedUrl"`
	CreatedAt        int64  `mapstructure:"createdAt"`
	DescriptionPlain string `mapstructure:"descriptionPlain"`
	Description      string `mapstructure:"description"`
	WorkplaceType    string `mapstructure:"workplaceType"`
	Categories       struct {
		Location   string `mapstructure:"location"`
		Team       string `mapstructure:"team"`
		Commitment string `mapstructure:"commitment"`
	} `mapstructure:"categories"`
	Lists []struct {
		Text    string `mapstructure:"text"`
		Content string `mapstructure:"content"`
	} `mapstructure:"lists"`
	SalaryRange *struct {
		Min      float64 `mapstructure:"min"`
		Max      float64 `mapstructure:"max"`
		Currency string  `mapstructure:"currency"`
		Interval string  `mapstructure:"interval"`
	} `mapstructure:"salaryRange"`
}

// Search reads every configured company. A failing company is skipped as long
// as another one answered.
func (c *Client) Search(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	if len(c.companies) == 0 {
		return nil, fmt.Errorf("%w: no companies configured", providers.ErrProviderUnavailable)
	}

	var (
		postings []*jobs.Posting
		errs     []error
	)
	for _, company := range c.companies {
		found, err := c.company(ctx, company, q)
		if err != nil {
			c.logger.Warn("company search failed", zap.String("company", company), zap.Error(err))
			errs = append(errs, fmt.Errorf("company %s: %w", company, err))
			continue
		}
		postings = append(postings, found...)
	}

	if len(errs) == len(c.companies) {
		return nil, errors.Join(errs...)
	}
	return postings, nil
}

func (c *Client) company(ctx context.Context, company string, q providers.Query) ([]*jobs.Posting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", c.APIURL, company)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("make request", zap.String("url", url))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.StatusError(resp)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}

	var decoded []posting
	cfg := &mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}

	var postings []*jobs.Posting
	for _, item := range decoded {
		p := item.toPosting(company)
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

// yearly converts a salary bound to a yearly amount.
var yearly = map[string]float64{
	"per-year-salary":  1,
	"per-month-salary": 12,
	"per-week-salary":  52,
	"per-day-salary":   260,
	"per-hour-wage":    2080,
}

func (p posting) toPosting(company string) *jobs.Posting {
	parts := []string{p.DescriptionPlain}
	if p.DescriptionPlain == "" {
		parts[0] = providers.PlainText(p.Description)
	}
	for _, l := range p.Lists {
		parts = append(parts, listText(l.Text, l.Content))
	}

	out := &jobs.Posting{
		Provider:    Name,
		ID:          p.ID,
		Title:       p.Text,
		Company:     company,
		Location:    p.Categories.Location,
		Description: strings.Join(strings.Fields(strings.Join(parts, " ")), " "),
		Remote:      p.WorkplaceType == "remote" || strings.Contains(strings.ToLower(p.Categories.Location), "remote"),
		URL:         p.HostedURL,
	}

	if p.CreatedAt > 0 {
		out.PostedAt = time.UnixMilli(p.CreatedAt).UTC()
	}

	if s := p.SalaryRange; s != nil && (s.Min > 0 || s.Max > 0) {
		factor, ok := yearly[s.Interval]
		if !ok {
			factor = 1
		}
		out.Salary = &jobs.SalaryRange{
			Min:      int(s.Min * factor),
			Max:      int(s.Max * factor),
			Currency: s.Currency,
		}
	}
	return out
}

func listText(title, content string) string {
	return title + ": " + providers.PlainText(content)
}
