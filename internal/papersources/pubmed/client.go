package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/normalize"
	"github.com/helixir/pubmed-harvester/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultTool identifies the harvester to NCBI.
	DefaultTool = "helixir-pubmed-harvester"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	DefaultRateLimit = 3.0

	// APIKeyRateLimit is the rate limit granted with an API key.
	APIKeyRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default esearch retmax.
	DefaultMaxResults = 100

	// MaxResultsLimit is the maximum retmax accepted by esearch.
	MaxResultsLimit = 10000

	// postThreshold is the id count above which efetch switches to POST.
	postThreshold = 200

	// maxResponseSize bounds the bytes read from one response.
	maxResponseSize = 64 << 20

	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	BaseURL string

	// Tool and Email identify the caller as NCBI requires.
	Tool  string
	Email string

	// APIKey is the NCBI API key for higher rate limits. Optional.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 3, or 10
	// when an API key is configured.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries bounds transport retries on 429 and 5xx. Negative disables them.
	MaxRetries int

	// MaxResults is the esearch retmax.
	MaxResults int

	// Observer receives per-request outcomes. Optional.
	Observer papersources.RequestObserver
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
		if c.APIKey != "" {
			c.RateLimit = APIKeyRateLimit
		}
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxResults > MaxResultsLimit {
		c.MaxResults = MaxResultsLimit
	}
}

func (c *Config) identification() url.Values {
	return url.Values{
		"tool":    {c.Tool},
		"email":   {c.Email},
		"api_key": {c.APIKey},
	}
}

// Client talks to the E-utilities esearch, efetch and elink endpoints.
// Every failure it returns is a domain connection error.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Timeout:     cfg.Timeout,
		RateLimit:   cfg.RateLimit,
		BurstSize:   cfg.BurstSize,
		MaxRetries:  cfg.MaxRetries,
		UserAgent:   "Helixir-PubMedHarvester/1.0",
		QueryParams: cfg.identification(),
		Observer:    cfg.Observer,
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search returns the PMIDs matching term in relevance order. Duplicates
// reported by the service are kept. A phrase PubMed does not know yields an
// empty result.
func (c *Client) Search(ctx context.Context, term string) ([]string, error) {
	q := url.Values{}
	q.Set("db", DatabasePubMed)
	q.Set("term", term)
	q.Set("retmode", "xml")
	q.Set("retmax", strconv.Itoa(c.config.MaxResults))

	body, err := c.get(ctx, "esearch.fcgi", q)
	if err != nil {
		return nil, domain.NewConnectionError("esearch", err)
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, domain.NewConnectionError("esearch", fmt.Errorf("failed to parse XML response: %w", err))
	}
	if result.Error != "" {
		return nil, domain.NewConnectionError("esearch", errors.New(result.Error))
	}
	if result.ErrorList != nil && len(result.ErrorList.PhraseNotFound) > 0 && len(result.IDList.IDs) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(result.IDList.IDs))
	for _, id := range result.IDList.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Fetch retrieves the full article XML for pmids, one Document per
// PubmedArticle in response order. An empty batch returns without a request.
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]*normalize.Document, error) {
	if len(pmids) == 0 {
		return []*normalize.Document{}, nil
	}

	q := url.Values{}
	q.Set("db", DatabasePubMed)
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")

	var (
		body []byte
		err  error
	)
	if len(pmids) > postThreshold {
		body, err = c.post(ctx, "efetch.fcgi", q)
	} else {
		body, err = c.get(ctx, "efetch.fcgi", q)
	}
	if err != nil {
		return nil, domain.NewConnectionError("efetch", err)
	}

	docs, err := normalize.ParseArticleSet(body)
	if err != nil {
		return nil, domain.NewConnectionError("efetch", err)
	}
	return docs, nil
}

// LookupLinks returns the neighbor_score elink response for pmid.
func (c *Client) LookupLinks(ctx context.Context, pmid string) (*ELinkResult, error) {
	q := url.Values{}
	q.Set("dbfrom", DatabasePubMed)
	q.Set("db", DatabasePubMed)
	q.Set("cmd", CommandNeighborScore)
	q.Set("id", pmid)
	q.Set("retmode", "xml")

	body, err := c.get(ctx, "elink.fcgi", q)
	if err != nil {
		return nil, domain.NewConnectionError("elink", err)
	}

	var result ELinkResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, domain.NewConnectionError("elink", fmt.Errorf("failed to parse XML response: %w", err))
	}
	if result.Error != "" {
		return nil, domain.NewConnectionError("elink", errors.New(result.Error))
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u, err := url.Parse(c.config.BaseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	u := c.config.BaseURL + "/" + endpoint
	encoded := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(encoded)), nil
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var statusErr *papersources.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			return nil, domain.NewRateLimitError(sourceName, statusErr.RetryAfter)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
