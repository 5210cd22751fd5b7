// Package subgraph reads tick, current-tick and order events from the
// venue's GraphQL indexer.
package subgraph

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/machinebox/graphql"

	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// Client queries the indexer. Records that fail to parse are dropped and
// counted; they never fail the whole request.
type Client struct {
	gql          *graphql.Client
	sizeDecimals int32
	log          logger.Interface
	dropped      atomic.Int64
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	log        logger.Interface
}

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Interface) Option {
	return func(o *options) { o.log = l }
}

// NewClient returns a client for the GraphQL endpoint at url. Raw volumes are
// scaled down by sizeDecimals.
func NewClient(url string, sizeDecimals int32, opts ...Option) *Client {
	o := options{httpClient: http.DefaultClient, log: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		gql:          graphql.NewClient(url, graphql.WithHTTPClient(o.httpClient)),
		sizeDecimals: sizeDecimals,
		log:          o.log.WithFields(logger.NewField("component", "subgraph")),
	}
}

// Dropped returns how many malformed records have been discarded.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

type itemsOf[T any] struct {
	Items []T `json:"items"`
}

// Ticks returns every indexed tick event.
func (c *Client) Ticks(ctx context.Context) ([]core.TickEvent, error) {
	var resp struct {
		Tickss itemsOf[tickRecord] `json:"tickss"`
	}
	if err := c.gql.Run(ctx, graphql.NewRequest(ticksQuery), &resp); err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}

	out := make([]core.TickEvent, 0, len(resp.Tickss.Items))
	for _, rec := range resp.Tickss.Items {
		ev, err := rec.event(c.sizeDecimals)
		if err != nil {
			c.drop(ctx, "tick", string(rec.ID), err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// CurrentTicks returns the current-tick history ordered by time.
func (c *Client) CurrentTicks(ctx context.Context) ([]core.CurrentTickEvent, error) {
	var resp struct {
		Events itemsOf[currentTickRecord] `json:"setCurrentTickEventss"`
	}
	if err := c.gql.Run(ctx, graphql.NewRequest(currentTicksQuery), &resp); err != nil {
		return nil, fmt.Errorf("query current ticks: %w", err)
	}

	out := make([]core.CurrentTickEvent, 0, len(resp.Events.Items))
	for _, rec := range resp.Events.Items {
		ev, err := rec.event()
		if err != nil {
			c.drop(ctx, "current_tick", string(rec.ID), err)
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Orders returns placed orders newest first. A non-empty user keeps only that
// account's orders.
func (c *Client) Orders(ctx context.Context, user string) ([]core.OrderEvent, error) {
	var resp struct {
		Events itemsOf[orderRecord] `json:"placeOrderEventss"`
	}
	if err := c.gql.Run(ctx, graphql.NewRequest(ordersQuery), &resp); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	out := make([]core.OrderEvent, 0, len(resp.Events.Items))
	for _, rec := range resp.Events.Items {
		ev, err := rec.event(c.sizeDecimals)
		if err != nil {
			c.drop(ctx, "order", string(rec.ID), err)
			continue
		}
		if user != "" && !strings.EqualFold(ev.User, user) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (c *Client) drop(ctx context.Context, kind, id string, err error) {
	c.dropped.Add(1)
	c.log.DebugContext(ctx, "dropped malformed record",
		logger.NewField("kind", kind),
		logger.NewField("id", id),
		logger.NewField("reason", err.Error()))
}
