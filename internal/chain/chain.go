// Package chain reads proposals and ballots from the governance application
// through CometBFT ABCI queries.
package chain

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"governance-analytics/internal/rollup"
	"governance-analytics/internal/summary"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	rpccoretypes "github.com/cometbft/cometbft/rpc/core/types"
	"go.uber.org/zap"
)

const (
	ProposalPath = "/governance/proposal"
	VotesPath    = "/governance/votes"

	// codeNotFound is the response code the application uses for unknown ids.
	codeNotFound = 404
)

// Querier is the part of the CometBFT RPC client the sources need.
type Querier interface {
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*rpccoretypes.ResultABCIQuery, error)
}

type Client struct {
	q      Querier
	logger *zap.Logger
}

var (
	_ summary.ProposalSource = (*Client)(nil)
	_ summary.VoteSource     = (*Client)(nil)
)

// New creates a client for the node at rpcURL. The connection is opened on
// the first query.
func New(rpcURL, wsPath string, logger *zap.Logger) (*Client, error) {
	c, err := rpchttp.New(rpcURL, wsPath)
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}
	return NewWithQuerier(c, logger), nil
}

func NewWithQuerier(q Querier, logger *zap.Logger) *Client {
	return &Client{q: q, logger: logger.Named("chain")}
}

type proposalWire struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Proposer    string  `json:"proposer"`
	Status      string  `json:"status"`
	Quorum      float64 `json:"quorum"`
	StartBlock  int64   `json:"start_block"`
	EndBlock    int64   `json:"end_block"`
}

type voteWire struct {
	Voter     string  `json:"voter"`
	ProofID   string  `json:"proof_id"`
	IsPrivate bool    `json:"is_private"`
	Support   int     `json:"support"`
	Votes     float64 `json:"votes"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// FetchProposal returns nil, nil when the application does not know the id.
func (c *Client) FetchProposal(ctx context.Context, id uint64) (*summary.Proposal, error) {
	raw, found, err := c.query(ctx, ProposalPath, id)
	if err != nil || !found {
		return nil, err
	}

	var w proposalWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode proposal %d: %w", id, err)
	}
	return &summary.Proposal{
		ID:          id,
		Title:       w.Title,
		Description: w.Description,
		Proposer:    w.Proposer,
		Status:      w.Status,
		Quorum:      w.Quorum,
	}, nil
}

// FetchVotes returns the ballots of a proposal as published by the
// application. Values are passed through unchecked; the rollup rejects
// malformed ones.
func (c *Client) FetchVotes(ctx context.Context, proposalID uint64) ([]rollup.Vote, error) {
	raw, found, err := c.query(ctx, VotesPath, proposalID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []rollup.Vote{}, nil
	}

	var wire []voteWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode votes of proposal %d: %w", proposalID, err)
	}

	votes := make([]rollup.Vote, 0, len(wire))
	for _, w := range wire {
		ts := time.UnixMilli(w.Timestamp).UTC()
		if w.IsPrivate {
			votes = append(votes, rollup.PrivateVote(w.ProofID, rollup.Support(w.Support), w.Votes, ts))
		} else {
			votes = append(votes, rollup.PublicVote(w.Voter, rollup.Support(w.Support), w.Votes, ts))
		}
	}
	return votes, nil
}

func (c *Client) query(ctx context.Context, path string, id uint64) ([]byte, bool, error) {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)

	res, err := c.q.ABCIQuery(ctx, path, key)
	if err != nil {
		return nil, false, fmt.Errorf("abci query %s %d: %w", path, id, err)
	}
	resp := res.Response
	switch {
	case resp.Code == codeNotFound:
		c.logger.Debug("not found", zap.String("path", path), zap.Uint64("id", id))
		return nil, false, nil
	case resp.Code != 0:
		return nil, false, fmt.Errorf("abci query %s %d: code %d: %s", path, id, resp.Code, resp.Log)
	}
	return resp.Value, true, nil
}
