// Package indeed searches Indeed. With a publisher key it uses the publisher
// JSON API; without one it reads the public search pages.
package indeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/providers"
)

const (
	Name = "indeed"

	apiURL           = "https://api.indeed.com/ads/apisearch"
	siteURL          = "https://www.indeed.com"
	defaultUserAgent = "job-matcher/1.0"

	// The publisher API returns at most 25 results per call.
	apiPageSize  = 25
	sitePageSize = 10
	maxSitePages = 5
	maxAgeDays   = 30
	radiusMiles  = 25
)

type Config struct {
	APIKey     string `mapstructure:"api-key" json:"api-key,omitempty"`
	APIKeyFile string `mapstructure:"api-key-file" json:"api-key-file,omitempty"`
	UserAgent  string `mapstructure:"user-agent" json:"user-agent,omitempty"`
}

type Client struct {
	publisher  string
	userAgent  string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	SiteURL    string
}

// New creates a client. An empty publisher key selects the search pages.
func New(cfg Config, publisher string, l *zap.Logger) *Client {
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		publisher:  strings.TrimSpace(publisher),
		userAgent:  ua,
		logger:     logger.WithFields(l).With(zap.String(logger.FieldJobProvider, Name)),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIURL:     apiURL,
		SiteURL:    siteURL,
	}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) Search(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	if c.publisher != "" {
		return c.searchAPI(ctx, q)
	}
	return c.searchSite(ctx, q)
}

type result struct {
	JobKey            string `mapstructure:"jobkey"`
	JobTitle          string `mapstructure:"jobtitle"`
	Company           string `mapstructure:"company"`
	FormattedLocation string `mapstructure:"formattedLocation"`
	Snippet           string `mapstructure:"snippet"`
	URL               string `mapstructure:"url"`
	Date              string `mapstructure:"date"`
	Expired           bool   `mapstructure:"expired"`
}

func (c *Client) searchAPI(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	limit := apiPageSize
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	text := q.Text
	if q.Remote {
		text = strings.TrimSpace(text + " remote")
	}

	params := url.Values{}
	params.Set("publisher", c.publisher)
	params.Set("q", text)
	params.Set("l", q.Location)
	params.Set("sort", "relevance")
	params.Set("radius", strconv.Itoa(radiusMiles))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fromage", strconv.Itoa(maxAgeDays))
	params.Set("format", "json")
	params.Set("v", "2")

	resp, err := c.get(ctx, c.APIURL+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	var decoded []result
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	postings := make([]*jobs.Posting, 0, len(decoded))
	for _, r := range decoded {
		if r.Expired || r.JobKey == "" {
			continue
		}
		p := &jobs.Posting{
			Provider:    Name,
			ID:          r.JobKey,
			Title:       r.JobTitle,
			Company:     r.Company,
			Location:    r.FormattedLocation,
			Description: providers.PlainText(r.Snippet),
			Remote:      isRemote(r.FormattedLocation),
			URL:         r.URL,
		}
		if posted, err := time.Parse(time.RFC1123, r.Date); err == nil {
			p.PostedAt = posted.UTC()
		}
		postings = append(postings, p)
	}
	return postings, nil
}

func (c *Client) searchSite(ctx context.Context, q providers.Query) ([]*jobs.Posting, error) {
	pages := 1
	if q.Limit > 0 {
		pages = min((q.Limit+sitePageSize-1)/sitePageSize, maxSitePages)
	}

	var postings []*jobs.Posting
	for page := 0; page < pages; page++ {
		params := url.Values{}
		params.Set("q", q.Text)
		params.Set("l", q.Location)
		params.Set("start", strconv.Itoa(page*sitePageSize))
		params.Set("sort", "relevance")
		if q.Remote {
			params.Set("remotejob", "1")
		}

		found, err := c.page(ctx, c.SiteURL+"/jobs?"+params.Encode())
		if err != nil {
			// Later pages only add to what the first one returned.
			if page == 0 {
				return nil, err
			}
			c.logger.Warn("stopping at a failed page", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(found) == 0 {
			break
		}
		postings = append(postings, found...)
		if q.Limit > 0 && len(postings) >= q.Limit {
			return postings[:q.Limit], nil
		}
	}
	return postings, nil
}

func (c *Client) page(ctx context.Context, pageURL string) ([]*jobs.Posting, error) {
	resp, err := c.get(ctx, pageURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := providers.Body(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var postings []*jobs.Posting
	doc.Find("div.job_seen_beacon").Each(func(_ int, card *goquery.Selection) {
		if p := c.card(card); p != nil {
			postings = append(postings, p)
		}
	})
	return postings, nil
}

// card reads one search result. Cards without a title are skipped.
func (c *Client) card(card *goquery.Selection) *jobs.Posting {
	text := func(selector string) string {
		return strings.Join(strings.Fields(card.Find(selector).First().Text()), " ")
	}

	title := text("h2.jobTitle")
	if title == "" {
		return nil
	}
	company := text(`[data-testid="company-name"]`)
	location := text(`[data-testid="text-location"]`)

	key, ok := card.Attr("data-jk")
	if !ok || key == "" {
		key, ok = card.Find("[data-jk]").First().Attr("data-jk")
	}
	if !ok || key == "" {
		sum := sha256.Sum256([]byte(title + "|" + company + "|" + location))
		key = hex.EncodeToString(sum[:])[:12]
	}

	p := &jobs.Posting{
		Provider:    Name,
		ID:          key,
		Title:       title,
		Company:     company,
		Location:    location,
		Description: snippet(card.Find("div.job-snippet").First()),
		Remote:      isRemote(location),
		Salary:      ParseSalary(text("div.salary-snippet-container")),
	}
	if href, ok := card.Find("a.jcs-JobTitle").First().Attr("href"); ok && href != "" {
		p.URL = c.absolute(href)
	}
	return p
}

func snippet(sel *goquery.Selection) string {
	markup, err := sel.Html()
	if err != nil {
		return strings.Join(strings.Fields(sel.Text()), " ")
	}
	return providers.PlainText(markup)
}

func (c *Client) absolute(href string) string {
	base, err := url.Parse(c.SiteURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (c *Client) get(ctx context.Context, target, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	c.logger.Debug("make request", zap.String("url", redactPublisher(target)))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, providers.StatusError(resp)
	}
	return resp, nil
}

func redactPublisher(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	if q.Has("publisher") {
		q.Set("publisher", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isRemote(location string) bool {
	return strings.Contains(strings.ToLower(location), "remote")
}

var (
	amountRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s*[kK]?`)
	// perYear turns the pay period of a salary snippet into a yearly factor.
	perYear = []struct {
		word   string
		factor float64
	}{
		{"hour", 2080},
		{"day", 260},
		{"week", 52},
		{"month", 12},
	}
)

// ParseSalary reads snippets such as "$120,000 - $150,000 a year" or "From $45 an
// hour" into a yearly range. Text without an amount yields nil.
func ParseSalary(s string) *jobs.SalaryRange {
	amounts := amountRe.FindAllString(s, 2)
	if len(amounts) == 0 {
		return nil
	}

	factor := 1.0
	lower := strings.ToLower(s)
	for _, p := range perYear {
		if strings.Contains(lower, p.word) {
			factor = p.factor
			break
		}
	}

	values := make([]int, 0, len(amounts))
	for _, a := range amounts {
		a = strings.TrimSpace(a)
		mult := 1.0
		if strings.HasSuffix(a, "k") || strings.HasSuffix(a, "K") {
			mult = 1000
			a = strings.TrimSpace(a[:len(a)-1])
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(a, ",", ""), 64)
		if err != nil {
			return nil
		}
		values = append(values, int(v*mult*factor))
	}

	r := &jobs.SalaryRange{Min: values[0], Max: values[0]}
	if len(values) == 2 {
		r.Max = values[1]
	}
	if strings.Contains(s, "$") {
		r.Currency = "USD"
	}
	if strings.HasPrefix(strings.TrimSpace(lower), "up to") {
		r.Min = 0
	}
	return r
}
