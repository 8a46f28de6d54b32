package ideas

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/integrations"
)

const (
	// DefaultBaseURL is the generation service used when none is configured.
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout allows for slow model responses.
	DefaultTimeout = 90 * time.Second
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL    string
	Tokens     TokenSource
	Cache      cache.Cache
	Keyer      cache.Keyer
	TTL        time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the generation service.
type Client struct {
	*integrations.Client
	baseURL string
	tokens  TokenSource
	keyer   cache.Keyer
	ttl     time.Duration
}

// NewClient creates a client. It fails with INVALID_CONFIG when the base URL
// is not an http(s) URL.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if err := errors.ValidateURL(base); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "service url")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	keyer := opts.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.TTLIdea
	}

	c := &Client{
		Client:  integrations.NewClient(opts.Cache, timeout, nil),
		baseURL: base,
		tokens:  opts.Tokens,
		keyer:   keyer,
		ttl:     ttl,
	}
	c.SetHTTPClient(opts.HTTPClient)
	return c, nil
}

// BaseURL returns the service root, without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Generate returns the architecture for idea. The idea is trimmed and
// validated first. Cached results are reused unless refresh is set; results
// fetched with a per-request token are cached under that caller's scope.
func (c *Client) Generate(ctx context.Context, idea string, refresh bool) (*arch.Architecture, error) {
	idea = strings.TrimSpace(idea)
	if err := errors.ValidateIdea(idea); err != nil {
		return nil, err
	}

	keyer := c.keyer
	if t, ok := tokenFromContext(ctx); ok {
		keyer = cache.ForToken(keyer, t)
	}

	var result arch.Architecture
	key := keyer.IdeaKey(idea)
	err := c.Cached(ctx, cache.KeyTypeIdea, key, c.ttl, refresh, &result, func() error {
		a, err := c.fetch(ctx, idea)
		if err != nil {
			return err
		}
		result = *a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) fetch(ctx context.Context, idea string) (*arch.Architecture, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp arch.IdeaResponse
	if err := c.PostJSON(ctx, c.baseURL+"/idea", integrations.BearerHeader(token), arch.IdeaRequest{Idea: idea}, &resp); err != nil {
		return nil, err
	}
	return resp.Normalize()
}

func (c *Client) token(ctx context.Context) (string, error) {
	if t, ok := tokenFromContext(ctx); ok {
		return t, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	t, err := c.tokens.Token(ctx)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnauthorized, err, "obtain token")
	}
	return t, nil
}
