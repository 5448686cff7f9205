// Package oracle answers balance questions about addresses through an
// external HTTP service.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodySize caps how much of an oracle response is read.
const maxBodySize = 1 << 16

// ErrNoEndpoints is returned when a client is built without any
// oracle endpoint.
var ErrNoEndpoints = errors.New("no oracle endpoints configured")

// Client is the single call the verification stage consumes. Any
// error means "balance unknown, keep going" to the caller; retry and
// failover beyond simple endpoint rotation are the oracle's own
// concern.
type Client interface {
	CheckBalance(ctx context.Context, address string) (int64, error)
}

// Config controls the HTTP oracle client.
type Config struct {
	Endpoints      []string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

// HTTPClient queries esplora-style endpoints, rotating through them
// round robin and rate limiting globally across all units.
type HTTPClient struct {
	endpoints []string
	client    *http.Client
	limiter   *rate.Limiter
	next      atomic.Uint64
	log       *zap.Logger
}

// NewHTTPClient validates the configuration and builds a client.
func NewHTTPClient(cfg Config, log *zap.Logger) (*HTTPClient, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 4
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSec)
		if cfg.Burst == 0 {
			cfg.Burst = 1
		}
	}

	endpoints := make([]string, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		e = strings.TrimRight(strings.TrimSpace(e), "/")
		if e != "" {
			endpoints = append(endpoints, e)
		}
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	return &HTTPClient{
		endpoints: endpoints,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		log:       log,
	}, nil
}

// addressStats mirrors the oracle's JSON envelope. Only confirmed
// sums count toward the balance.
type addressStats struct {
	ChainStats struct {
		FundedSum int64 `json:"funded_txo_sum"`
		SpentSum  int64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

// CheckBalance returns the confirmed balance of an address in
// satoshis.
func (c *HTTPClient) CheckBalance(ctx context.Context, address string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	endpoint := c.endpoints[(c.next.Add(1)-1)%uint64(len(c.endpoints))]
	url := endpoint + "/address/" + address

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("oracle request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return 0, fmt.Errorf("oracle %s returned status %d", endpoint, resp.StatusCode)
	}

	var stats addressStats
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&stats); err != nil {
		return 0, fmt.Errorf("oracle response: %w", err)
	}

	balance := stats.ChainStats.FundedSum - stats.ChainStats.SpentSum
	if balance < 0 {
		c.log.Warn("oracle reported spent above funded",
			zap.String("address", address),
			zap.Int64("funded", stats.ChainStats.FundedSum),
			zap.Int64("spent", stats.ChainStats.SpentSum))
		balance = 0
	}
	return balance, nil
}

// NullClient reports every address as empty. Used for dry runs where
// no network traffic is wanted.
type NullClient struct{}

func (NullClient) CheckBalance(ctx context.Context, address string) (int64, error) {
	return 0, ctx.Err()
}
