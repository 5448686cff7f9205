package scorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"seedsleuth/search"
)

// MaxMessageSize bounds a single scorer reply. Replies beyond this are
// rejected before decoding.
const MaxMessageSize = 4 << 20

// Common errors for scorer transport operations
var (
	ErrNoEndpoint = errors.New("scorer endpoint is required")
	ErrTimeout    = errors.New("word scorer request timed out")
	ErrResponse   = errors.New("invalid word scorer response")
)

// ScoreRequest is the wire envelope sent to the scoring service.
// External services implement this contract.
type ScoreRequest struct {
	Token      string                    `json:"token,omitempty"`
	Nonce      string                    `json:"nonce"`
	Position   int                       `json:"position"`
	Constraint search.PositionConstraint `json:"constraint"`
	Words      []string                  `json:"words"`
}

// ScoreResponse is the wire envelope received from the scoring
// service. Nonce echoes the request's.
type ScoreResponse struct {
	Nonce string              `json:"nonce"`
	Words []search.ScoredWord `json:"words"`
	Error string              `json:"error,omitempty"`
}

// ZMQConfig holds connection settings for the scoring service.
type ZMQConfig struct {
	Endpoint string        `json:"endpoint" mapstructure:"endpoint"`
	Token    string        `json:"token" mapstructure:"token"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ZMQScorer talks to the scoring service over a REQ socket. The REQ
// state machine allows one outstanding request, so calls serialize on
// a mutex. A timed-out socket is torn down and redialed on the next
// call rather than reused in a broken send/recv state.
type ZMQScorer struct {
	ctx      context.Context
	endpoint string
	token    string
	timeout  time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	sock zmq4.Socket
}

// NewZMQScorer creates a scorer client. The socket is dialed lazily on
// the first Score call.
func NewZMQScorer(ctx context.Context, cfg ZMQConfig, log *zap.Logger) (*ZMQScorer, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ZMQScorer{
		ctx:      ctx,
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		timeout:  cfg.Timeout,
		log:      log,
	}, nil
}

// Score sends one position's candidates to the service and returns its
// ranked words.
func (s *ZMQScorer) Score(ctx context.Context, position int, c search.PositionConstraint, words []string) ([]search.ScoredWord, error) {
	if len(words) == 0 {
		return nil, nil
	}

	req := ScoreRequest{
		Token:      s.token,
		Nonce:      uuid.NewString(),
		Position:   position,
		Constraint: c,
		Words:      words,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score request: %w", err)
	}

	data, err := s.roundTrip(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseResponse(data, req.Nonce)
}

// Close releases the underlying socket if one is open.
func (s *ZMQScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	return nil
}

func (s *ZMQScorer) roundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSocketLocked(); err != nil {
		return nil, err
	}

	type reply struct {
		data []byte
		err  error
	}
	done := make(chan reply, 1)
	sock := s.sock
	go func() {
		if err := sock.Send(zmq4.NewMsg(payload)); err != nil {
			done <- reply{err: fmt.Errorf("failed to send score request: %w", err)}
			return
		}
		msg, err := sock.Recv()
		if err != nil {
			done <- reply{err: fmt.Errorf("failed to receive score response: %w", err)}
			return
		}
		done <- reply{data: msg.Bytes()}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			s.teardownLocked()
			return nil, r.err
		}
		return r.data, nil
	case <-timer.C:
		// Closing the socket unblocks the sender goroutine. A REQ
		// socket cannot recover mid-exchange, so the next call dials
		// a fresh one.
		s.teardownLocked()
		s.log.Warn("word scorer request timed out",
			zap.String("endpoint", s.endpoint),
			zap.Duration("timeout", s.timeout))
		return nil, ErrTimeout
	case <-ctx.Done():
		s.teardownLocked()
		return nil, ctx.Err()
	}
}

func (s *ZMQScorer) ensureSocketLocked() error {
	if s.sock != nil {
		return nil
	}
	sock := zmq4.NewReq(s.ctx)
	if err := sock.Dial(s.endpoint); err != nil {
		sock.Close()
		return fmt.Errorf("failed to dial word scorer at %s: %w", s.endpoint, err)
	}
	s.log.Debug("connected to word scorer", zap.String("endpoint", s.endpoint))
	s.sock = sock
	return nil
}

func (s *ZMQScorer) teardownLocked() {
	if s.sock != nil {
		s.sock.Close()
		s.sock = nil
	}
}

// parseResponse validates and decodes a raw scorer reply. The nonce
// must echo the request's so a reply left over from a torn-down
// exchange cannot be attributed to the wrong position.
func parseResponse(data []byte, nonce string) ([]search.ScoredWord, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrResponse, len(data))
	}
	var resp ScoreResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("word scorer rejected request: %s", resp.Error)
	}
	if resp.Nonce != nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrResponse)
	}
	return resp.Words, nil
}
