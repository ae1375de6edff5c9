// SPDX-License-Identifier: MPL-2.0

package subnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultInterval is the pause between voting rounds.
const DefaultInterval = 60 * time.Second

var (
	// ErrNotRegistered is reported for subnets where the operator's key has
	// no uid.
	ErrNotRegistered = errors.New("own key not registered on subnet")
	// ErrReferenceMissing is reported for subnets where the reference
	// validator has no uid.
	ErrReferenceMissing = errors.New("reference validator not registered on subnet")
	// ErrNothingToVote is reported when the reference validator's weights
	// leave no target after removing the operator's own uid.
	ErrNothingToVote = errors.New("no weights to copy")
)

type (
	// LoopConfig configures a Loop.
	LoopConfig struct {
		// Self is the operator's ss58 address.
		Self string
		// Reference is the ss58 address whose weights are copied.
		Reference string
		// Interval is the pause between rounds. Zero means DefaultInterval.
		Interval time.Duration
		Logger   *log.Logger
		Clock    Clock
	}

	// Loop votes on every subnet of its cache once per interval.
	Loop struct {
		cache  *Cache
		voter  Voter
		cfg    LoopConfig
		logger *log.Logger
		clock  Clock
	}

	// RoundResult is the outcome of one subnet in a round.
	RoundResult struct {
		Netuid  int
		UIDs    []UID
		Weights []uint16
		Receipt Receipt
		Err     error
	}
)

// NewLoop returns a Loop over cache that submits votes through voter.
func NewLoop(cache *Cache, voter Voter, cfg LoopConfig) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Loop{cache: cache, voter: voter, cfg: cfg, logger: logger, clock: clock}
}

// RunOnce votes on every subnet using the current snapshots. Per-subnet
// failures are logged and returned in the results; only context
// cancellation aborts the round.
func (l *Loop) RunOnce(ctx context.Context) ([]RoundResult, error) {
	var results []RoundResult
	for _, netuid := range l.cache.Netuids() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := l.voteSubnet(ctx, netuid)
		results = append(results, res)

		switch {
		case res.Err != nil:
			l.logger.Warn("vote skipped", "subnet", netuid, "error", res.Err)
		case res.Receipt.Success:
			l.logger.Info("vote success", "subnet", netuid, "uids", res.UIDs, "weights", res.Weights, "extrinsic", res.Receipt.Extrinsic)
		default:
			l.logger.Error("vote failed", "subnet", netuid, "error", res.Receipt.Error)
		}
	}
	return results, nil
}

// Run repeats RunOnce every interval, refreshing the cache between rounds,
// until ctx is canceled. A stale cache is refreshed before the first round.
func (l *Loop) Run(ctx context.Context) error {
	if l.cache.Stale(l.cfg.Interval) {
		l.refresh(ctx)
	}
	for {
		if _, err := l.RunOnce(ctx); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.clock.After(l.cfg.Interval):
		}
		l.refresh(ctx)
	}
}

func (l *Loop) refresh(ctx context.Context) {
	if err := l.cache.Refresh(ctx); err != nil {
		l.logger.Error("cache refresh failed; keeping previous snapshot", "error", err)
		return
	}
	l.logger.Debug("cache refreshed", "subnets", len(l.cache.Netuids()))
}

func (l *Loop) voteSubnet(ctx context.Context, netuid int) RoundResult {
	res := RoundResult{Netuid: netuid}

	self, _, ok := l.cache.Lookup(netuid, l.cfg.Self)
	if !ok {
		res.Err = ErrNotRegistered
		return res
	}
	_, ref, ok := l.cache.Lookup(netuid, l.cfg.Reference)
	if !ok {
		res.Err = ErrReferenceMissing
		return res
	}

	for _, uid := range slices.Sorted(maps.Keys(ref)) {
		if uid == self {
			continue
		}
		res.UIDs = append(res.UIDs, uid)
		res.Weights = append(res.Weights, ref[uid])
	}
	if len(res.UIDs) == 0 {
		res.Err = ErrNothingToVote
		return res
	}

	receipt, err := l.voter.Vote(ctx, netuid, res.UIDs, res.Weights)
	if err != nil {
		res.Err = fmt.Errorf("submit vote: %w", err)
		return res
	}
	res.Receipt = receipt
	return res
}
