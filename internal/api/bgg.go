package api

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"boardgame-tracker/internal/backoff"
	"boardgame-tracker/internal/config"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Doer is satisfied by *fasthttp.Client.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

type BGGClient struct {
	baseURL      string
	apiToken     string
	client       Doer
	requestDelay time.Duration
	sleep        func(time.Duration)
	logger       zerolog.Logger

	statsMu sync.RWMutex
	policy  *backoff.Policy
	stats   FetchStats
}

type FetchStats struct {
	Requests   int           `json:"requests"`
	Failures   int           `json:"failures"`
	Successes  int           `json:"successes"`
	LastStatus int           `json:"last_status"`
	Delay      time.Duration `json:"delay"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type Option func(*BGGClient)

// WithSleeper replaces time.Sleep, mostly for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *BGGClient) { c.sleep = sleep }
}

func WithDoer(d Doer) Option {
	return func(c *BGGClient) { c.client = d }
}

func NewBGGClient(cfg *config.Config, logger zerolog.Logger, opts ...Option) *BGGClient {
	c := &BGGClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiToken: cfg.APIToken,
		// no read/write timeouts: a slow upstream is waited out, not abandoned
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		requestDelay: cfg.RequestDelay,
		sleep:        time.Sleep,
		logger:       logger.With().Str("component", "bgg").Logger(),
		policy:       backoff.NewPolicy(cfg.MinBackoff, cfg.MaxBackoff),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.Delay = c.policy.Delay()
	return c
}

func (c *BGGClient) Stats() FetchStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// Fetch issues one logical request and blocks until the upstream answers 200.
// Failed attempts are logged and retried after the backoff delay; they are
// never returned to the caller.
func (c *BGGClient) Fetch(ctx context.Context, command string, params url.Values) []byte {
	logger := c.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = l.With().Str("component", "bgg").Logger()
	}

	uri := c.baseURL + "/" + url.PathEscape(command)
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}

	for {
		c.sleep(c.requestDelay)

		logger.Debug().Str("url", uri).Msg("requesting")
		body, status, err := c.do(uri)

		c.statsMu.Lock()
		c.stats.Requests++
		c.stats.LastStatus = status
		c.stats.UpdatedAt = time.Now()
		if err == nil && status == fasthttp.StatusOK {
			c.policy.OnSuccess()
			c.stats.Delay = c.policy.Delay()
			c.stats.Successes = c.policy.Successes()
			c.statsMu.Unlock()
			return body
		}
		wait := c.policy.OnFailure()
		c.stats.Failures++
		c.stats.Delay = c.policy.Delay()
		c.stats.Successes = c.policy.Successes()
		c.statsMu.Unlock()

		event := logger.Info().
			Str("command", command).
			Int("status", status).
			Dur("sleep", wait)
		if err != nil {
			event = event.Err(err)
		} else {
			event = event.Str("reason", ErrorMessage(body, status))
		}
		event.Msg("upstream request failed, backing off")

		c.sleep(wait)
	}
}

func (c *BGGClient) do(uri string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	if err := c.client.Do(req, resp); err != nil {
		return nil, 0, err
	}

	// resp is released on return, keep our own copy of the body
	body := append([]byte(nil), resp.Body()...)
	return body, resp.StatusCode(), nil
}

func (c *BGGClient) GetUser(ctx context.Context, name string) []byte {
	return c.Fetch(ctx, "user", url.Values{"name": {name}})
}

type CollectionFilter struct {
	OnlyOwned  bool
	WantToPlay bool
}

func (c *BGGClient) GetCollection(ctx context.Context, username string, filter CollectionFilter) []byte {
	params := url.Values{"username": {username}, "stats": {"1"}}
	if filter.OnlyOwned {
		params.Set("own", "1")
	}
	if filter.WantToPlay {
		params.Set("wanttoplay", "1")
	}
	return c.Fetch(ctx, "collection", params)
}

func (c *BGGClient) GetThings(ctx context.Context, ids []string) []byte {
	return c.Fetch(ctx, "thing", url.Values{"id": {strings.Join(ids, ",")}, "stats": {"1"}})
}

func (c *BGGClient) GetPlays(ctx context.Context, username, gameID string, page int) []byte {
	params := url.Values{
		"id":       {gameID},
		"type":     {"thing"},
		"username": {username},
	}
	if page > 1 {
		params.Set("page", itoa(page))
	}
	return c.Fetch(ctx, "plays", params)
}
