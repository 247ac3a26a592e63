package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/correlate/internal/domain/model"
)

// Datadog defaults.
const (
	DatadogName           = "datadog"
	defaultDatadogBaseURL = "https://api.datadoghq.com"
	datadogEventsPath     = "/api/v2/events"
	defaultPageLimit      = 100
	defaultTimeout        = 10 * time.Second
	defaultBackoff        = 500 * time.Millisecond
	maxBackoff            = 10 * time.Second
	maxErrorBody          = 512

	envAPIKey = "DD_API_KEY"
	envAppKey = "DD_APP_KEY"
)

// DatadogConfig configures the Datadog events API source. Empty keys fall
// back to DD_API_KEY and DD_APP_KEY.
type DatadogConfig struct {
	APIKey    string
	AppKey    string
	BaseURL   string
	PageLimit int
	// MaxPages caps cursor pagination; <= 1 fetches the first page only.
	MaxPages int
	Timeout  time.Duration
	// Retries is the number of extra attempts per page on transient failures.
	Retries int
}

// DatadogOption applies a configuration option to the DatadogSource.
type DatadogOption func(*DatadogSource)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) DatadogOption {
	return func(s *DatadogSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) DatadogOption {
	return func(s *DatadogSource) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// DatadogSource reads events from the Datadog v2 events API.
type DatadogSource struct {
	cfg     DatadogConfig
	client  *http.Client
	backoff time.Duration
}

// NewDatadogSource validates credentials and builds the source.
func NewDatadogSource(cfg DatadogConfig, opts ...DatadogOption) (*DatadogSource, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envAPIKey)
	}
	if cfg.AppKey == "" {
		cfg.AppKey = os.Getenv(envAppKey)
	}
	if cfg.APIKey == "" || cfg.AppKey == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDatadogBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	s := &DatadogSource{
		cfg:     cfg,
		client:  newHTTPClient(cfg.Timeout),
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Source.
func (s *DatadogSource) Name() string { return DatadogName }

type eventsPage struct {
	Data []struct {
		ID         string         `json:"id"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Page struct {
			After string `json:"after"`
		} `json:"page"`
	} `json:"meta"`
}

// Fetch returns the events of q in API order, following page cursors.
func (s *DatadogSource) Fetch(ctx context.Context, q model.Query) ([]model.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		events []model.Event
		cursor string
	)
	for page := 0; ; page++ {
		var p eventsPage
		err := retry(ctx, s.cfg.Retries+1, s.backoff, maxBackoff, func() error {
			var err error
			p, err = s.fetchPage(ctx, q, cursor)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range p.Data {
			events = append(events, toEvent(item.ID, item.Attributes))
		}

		cursor = p.Meta.Page.After
		if cursor == "" || len(p.Data) == 0 || page+1 >= s.cfg.MaxPages {
			return events, nil
		}
	}
}

func (s *DatadogSource) fetchPage(ctx context.Context, q model.Query, cursor string) (eventsPage, error) {
	var page eventsPage

	params := url.Values{}
	params.Set("filter[from]", strconv.FormatInt(q.From.Unix(), 10))
	params.Set("filter[to]", strconv.FormatInt(q.To.Unix(), 10))
	params.Set("page[limit]", strconv.Itoa(s.cfg.PageLimit))
	if q.Filter != "" {
		params.Set("filter[query]", q.Filter)
	}
	if cursor != "" {
		params.Set("page[cursor]", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+datadogEventsPath+"?"+params.Encode(), nil)
	if err != nil {
		return page, permanent(err)
	}
	req.Header.Set("DD-API-KEY", s.cfg.APIKey)
	req.Header.Set("DD-APPLICATION-KEY", s.cfg.AppKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return page, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return page, err
		}
		return page, permanent(err)
	}

	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return page, permanent(fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return page, nil
}

// toEvent maps an API item. Fields may sit on the attributes object or on
// its nested "attributes" object.
func toEvent(id string, attrs map[string]any) model.Event {
	maps := attributeMaps(attrs)
	return model.Event{
		ID:        id,
		Title:     pickStr(maps, "title"),
		Text:      pickStr(maps, "text", "message"),
		Tags:      pickTags(maps, "tags"),
		Timestamp: pickTime(maps, "timestamp"),
		Source:    DatadogName,
	}
}
