// SPDX-License-Identifier: MPL-2.0

package subnet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Bakobiibizo/module-validator-rust/internal/testutil"
)

const (
	selfKey = "5SelfValidatorAddress"
	refKey  = "5ReferenceValidatorAddress"
)

type (
	fakeChain struct {
		mu      sync.Mutex
		subnets map[int]fakeSubnet
		fail    error
		queries int
		votes   []VoteBody
		reject  bool
	}

	fakeSubnet struct {
		keys    map[UID]string
		weights map[UID]Weights
	}
)

func (f *fakeChain) QueryAddresses(_ context.Context, netuid int) (map[UID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.fail != nil {
		return nil, f.fail
	}
	out := map[UID]string{}
	for uid := range f.subnets[netuid].keys {
		out[uid] = "127.0.0.1:9000"
	}
	return out, nil
}

func (f *fakeChain) QueryWeights(_ context.Context, netuid int) (map[UID]Weights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subnets[netuid].weights, nil
}

func (f *fakeChain) QueryKeys(_ context.Context, netuid int) (map[UID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subnets[netuid].keys, nil
}

func (f *fakeChain) Vote(_ context.Context, netuid int, uids []UID, weights []uint16) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, VoteBody{Netuid: netuid, UIDs: uids, Weights: weights})
	if f.reject {
		return Receipt{Success: false, Error: "bad weights"}, nil
	}
	return Receipt{Success: true, Extrinsic: "0xabc"}, nil
}

func (f *fakeChain) voteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.votes)
}

func newChain() *fakeChain {
	return &fakeChain{subnets: map[int]fakeSubnet{
		3: {
			keys:    map[UID]string{0: refKey, 1: selfKey, 2: "5Other"},
			weights: map[UID]Weights{0: {1: 100, 2: 200, 5: 50}},
		},
		4: {
			keys:    map[UID]string{7: refKey, 2: selfKey},
			weights: map[UID]Weights{7: {2: 10, 3: 30}},
		},
	}}
}

func TestCacheRefreshAndLookup(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	c := NewCache(newChain(), []int{3, 4}, WithClock(clock))

	if !c.Stale(time.Minute) {
		t.Error("new cache should be stale")
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.RefreshedAt().Equal(clock.Now()) {
		t.Errorf("RefreshedAt() = %v, want %v", c.RefreshedAt(), clock.Now())
	}
	if c.Stale(time.Minute) {
		t.Error("fresh cache reported stale")
	}
	clock.Advance(2 * time.Minute)
	if !c.Stale(time.Minute) {
		t.Error("cache older than maxAge should be stale")
	}

	uid, weights, ok := c.Lookup(3, refKey)
	if !ok || uid != 0 {
		t.Fatalf("Lookup(ref) = %d, %v", uid, ok)
	}
	if diff := cmp.Diff(Weights{1: 100, 2: 200, 5: 50}, weights); diff != "" {
		t.Errorf("weights mismatch (-want +got):\n%s", diff)
	}
	if _, _, ok := c.Lookup(3, "5Unknown"); ok {
		t.Error("Lookup(unknown) should fail")
	}
	if _, _, ok := c.Lookup(99, refKey); ok {
		t.Error("Lookup on uncached subnet should fail")
	}
}

func TestCacheFailedRefreshKeepsSnapshot(t *testing.T) {
	t.Parallel()

	chain := newChain()
	clock := testutil.NewFakeClock(time.Time{})
	c := NewCache(chain, []int{3}, WithClock(clock))
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := c.RefreshedAt()

	chain.fail = errors.New("node down")
	clock.Advance(time.Hour)
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error")
	}
	if !c.RefreshedAt().Equal(before) {
		t.Error("failed refresh moved RefreshedAt")
	}
	if _, _, ok := c.Lookup(3, refKey); !ok {
		t.Error("failed refresh dropped the previous snapshot")
	}
}

func TestRunOnceCopiesWeightsSkippingSelf(t *testing.T) {
	t.Parallel()

	chain := newChain()
	c := NewCache(chain, []int{3, 4})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	loop := NewLoop(c, chain, LoopConfig{Self: selfKey, Reference: refKey})
	results, err := loop.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []VoteBody{
		{Netuid: 3, UIDs: []UID{2, 5}, Weights: []uint16{200, 50}},
		{Netuid: 4, UIDs: []UID{3}, Weights: []uint16{30}},
	}
	if diff := cmp.Diff(want, chain.votes); diff != "" {
		t.Errorf("votes mismatch (-want +got):\n%s", diff)
	}
	for _, r := range results {
		if r.Err != nil || !r.Receipt.Success {
			t.Errorf("subnet %d result = %+v", r.Netuid, r)
		}
	}
}

func TestRunOncePerSubnetFailures(t *testing.T) {
	t.Parallel()

	chain := newChain()
	chain.subnets[5] = fakeSubnet{keys: map[UID]string{0: refKey}, weights: map[UID]Weights{0: {1: 1}}}
	chain.subnets[6] = fakeSubnet{keys: map[UID]string{0: selfKey}}
	chain.subnets[7] = fakeSubnet{keys: map[UID]string{0: refKey, 1: selfKey}, weights: map[UID]Weights{0: {1: 9}}}
	c := NewCache(chain, []int{5, 6, 7})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	results, err := NewLoop(c, chain, LoopConfig{Self: selfKey, Reference: refKey}).RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	wantErrs := []error{ErrNotRegistered, ErrReferenceMissing, ErrNothingToVote}
	for i, r := range results {
		if !errors.Is(r.Err, wantErrs[i]) {
			t.Errorf("subnet %d error = %v, want %v", r.Netuid, r.Err, wantErrs[i])
		}
	}
	if chain.voteCount() != 0 {
		t.Errorf("unexpected votes: %+v", chain.votes)
	}
}

func TestRunOnceRejectedVote(t *testing.T) {
	t.Parallel()

	chain := newChain()
	chain.reject = true
	c := NewCache(chain, []int{3})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	results, err := NewLoop(c, chain, LoopConfig{Self: selfKey, Reference: refKey}).RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Receipt.Success || results[0].Receipt.Error != "bad weights" {
		t.Errorf("results = %+v", results)
	}
}

func TestRunRefreshesBetweenRounds(t *testing.T) {
	t.Parallel()

	chain := newChain()
	clock := testutil.NewFakeClock(time.Time{})
	c := NewCache(chain, []int{3}, WithClock(clock))
	loop := NewLoop(c, chain, LoopConfig{Self: selfKey, Reference: refKey, Interval: time.Minute, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	if !clock.BlockUntilWaiters(1, 5*time.Second) {
		t.Fatal("loop never started waiting")
	}
	if got := chain.voteCount(); got != 1 {
		t.Fatalf("votes after first round = %d, want 1", got)
	}
	firstRefresh := c.RefreshedAt()

	clock.Advance(time.Minute)
	if !clock.BlockUntilWaiters(1, 5*time.Second) {
		t.Fatal("loop did not start a second wait")
	}
	if got := chain.voteCount(); got != 2 {
		t.Errorf("votes after second round = %d, want 2", got)
	}
	if !c.RefreshedAt().After(firstRefresh) {
		t.Error("cache not refreshed between rounds")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
