// SPDX-License-Identifier: MPL-2.0

package subnet

import (
	"context"
	"time"
)

type (
	// UID is a validator's index within one subnet.
	UID uint16

	// Weights maps target UIDs to weights set by one validator.
	Weights map[UID]uint16

	// Receipt is the outcome of a vote extrinsic.
	Receipt struct {
		Success   bool   `json:"success"`
		Extrinsic string `json:"extrinsic,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	// Querier reads per-subnet maps from the chain.
	Querier interface {
		// QueryAddresses returns uid -> network address.
		QueryAddresses(ctx context.Context, netuid int) (map[UID]string, error)
		// QueryWeights returns uid -> weights that validator has set.
		QueryWeights(ctx context.Context, netuid int) (map[UID]Weights, error)
		// QueryKeys returns uid -> ss58 address.
		QueryKeys(ctx context.Context, netuid int) (map[UID]string, error)
	}

	// Voter submits weights for the operator's key.
	Voter interface {
		Vote(ctx context.Context, netuid int, uids []UID, weights []uint16) (Receipt, error)
	}

	// Clock is the time source of the cache and loop.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
		Since(t time.Time) time.Duration
	}

	realClock struct{}
)

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (realClock) Since(t time.Time) time.Duration        { return time.Since(t) }
