package indexer

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/machinebox/graphql"
	"go.uber.org/zap"
)

const streamsQuery = `
query GetStreams($first: Int, $where: Stream_filter) {
  streams(first: $first, where: $where) {
    id
  }
}`

// Stream is the part of a subgraph stream record the lookup consumes.
type Stream struct {
	ID string `json:"id"`
}

type streamsResponse struct {
	Streams []Stream `json:"streams"`
}

// Options configures a Client. Zero values pick defaults: DefaultRegistry,
// http.DefaultClient and a no-op logger.
type Options struct {
	Registry   *Registry
	HTTPClient *http.Client
	Logger     *zap.Logger
	UserAgent  string

	// OnLookupFailure is called for every recovered transport or query failure.
	OnLookupFailure func(network Network, err error)
}

// Client looks up active streams on the subgraph registered for a network.
//
// Client is safe for concurrent use; its per-endpoint GraphQL clients are built in
// NewClient and never modified.
type Client struct {
	registry  *Registry
	logger    *zap.Logger
	userAgent string
	onFailure func(Network, error)
	clients   map[string]*graphql.Client
}

// NewClient builds a Client over opts.Registry.
func NewClient(opts Options) *Client {
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clients := make(map[string]*graphql.Client, len(registry.endpoints))
	for _, endpoint := range registry.endpoints {
		if _, ok := clients[endpoint]; ok {
			continue
		}
		gc := graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient))
		gc.Log = func(s string) { logger.Debug(s, zap.String("endpoint", endpoint)) }
		clients[endpoint] = gc
	}

	return &Client{
		registry:  registry,
		logger:    logger,
		userAgent: opts.UserAgent,
		onFailure: opts.OnLookupFailure,
		clients:   clients,
	}
}

// Registry returns the registry the client resolves networks against.
func (c *Client) Registry() *Registry {
	return c.registry
}

// FindActiveStream returns at most one active stream matching params.
//
// It returns errors wrapping ErrUnsupportedNetwork or ErrInvalidFlowRate, both
// before any query. Transport and query failures are logged and reported as an
// empty result.
func (c *Client) FindActiveStream(ctx context.Context, params map[string]any) ([]Stream, error) {
	network, _ := NetworkOf(params)
	endpoint, err := c.registry.Endpoint(network)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, err := BuildFilter(params)
	if err != nil {
		return nil, err
	}

	req := graphql.NewRequest(streamsQuery)
	req.Var("first", 1)
	req.Var("where", where)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var resp streamsResponse
	if err := c.clients[endpoint].Run(ctx, req, &resp); err != nil {
		c.recover(network, endpoint, err)
		return []Stream{}, nil
	}

	for _, s := range resp.Streams {
		if s.ID != "" {
			return []Stream{s}, nil
		}
	}
	if len(resp.Streams) > 0 {
		c.recover(network, endpoint, errors.New("indexer returned streams without ids"))
	}
	return []Stream{}, nil
}

func (c *Client) recover(network Network, endpoint string, err error) {
	c.logger.Warn("super-jwt: stream lookup failed, treating as no stream",
		zap.String("network", string(network)),
		zap.String("endpoint", endpoint),
		zap.String("lookup_id", uuid.NewString()),
		zap.Error(err),
	)
	if c.onFailure != nil {
		c.onFailure(network, err)
	}
}
