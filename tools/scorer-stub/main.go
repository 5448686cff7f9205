// Command scorer-stub serves the word scoring protocol over a ZeroMQ
// REP socket, ranking words with the built-in constraint facets. It
// stands in for a real linguistic scoring service during development.
package main

import (
	"context"
	"crypto/subtle"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/go-zeromq/zmq4"
	json "github.com/goccy/go-json"

	"seedsleuth/mnemonic"
	"seedsleuth/scorer"
	"seedsleuth/search"
)

func main() {
	var (
		bind  string
		token string
	)
	flag.StringVar(&bind, "bind", "tcp://127.0.0.1:5555", "Listen address")
	flag.StringVar(&token, "token", "", "Require this auth token (empty disables auth)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &stubServer{
		token:  token,
		filter: search.NewCandidateFilter(mnemonic.NewDictionary(), search.DefaultWeights(), 0),
	}

	rep := zmq4.NewRep(ctx)
	defer rep.Close()
	if err := rep.Listen(bind); err != nil {
		log.Fatalf("Failed to listen on %s: %v", bind, err)
	}
	fmt.Printf("scorer-stub listening on %s (auth: %v)\n", bind, token != "")

	for {
		msg, err := rep.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Receive failed: %v", err)
			return
		}

		data, err := json.Marshal(srv.handle(msg.Bytes()))
		if err != nil {
			log.Printf("Encode failed: %v", err)
			return
		}
		if err := rep.Send(zmq4.NewMsg(data)); err != nil {
			log.Printf("Send failed: %v", err)
			return
		}
	}
}

type stubServer struct {
	token  string
	filter *search.CandidateFilter
}

func (s *stubServer) handle(raw []byte) scorer.ScoreResponse {
	var req scorer.ScoreRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return scorer.ScoreResponse{Error: fmt.Sprintf("malformed request: %v", err)}
	}

	if s.token != "" {
		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(s.token), []byte(req.Token)) != 1 {
			return scorer.ScoreResponse{Nonce: req.Nonce, Error: "invalid token"}
		}
	}

	return scorer.ScoreResponse{
		Nonce: req.Nonce,
		Words: s.score(req.Constraint, req.Words),
	}
}

// score ranks the requested words under the constraint using the same
// facets the local filter applies, so stub scores stay plausible.
func (s *stubServer) score(c search.PositionConstraint, words []string) []search.ScoredWord {
	byWord := make(map[string]search.ScoredWord)
	for _, sw := range s.filter.Match(c) {
		byWord[sw.Word] = sw
	}

	out := make([]search.ScoredWord, 0, len(words))
	for _, w := range words {
		if sw, ok := byWord[w]; ok {
			out = append(out, sw)
			continue
		}
		out = append(out, search.ScoredWord{
			Word:      w,
			Score:     search.UnscoredDefault,
			Rationale: "not in dictionary",
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
