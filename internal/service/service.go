// Package service implements the league's use cases: identity, teams,
// matches, predictions, scoring and the leaderboard. Handlers call into it;
// it talks to storage only through repository.Store.
package service

import (
	"context" // Store deadlines
	"strconv" // Lock keys
	"time"    // Clock and durations
)

// Options carries the policy knobs shared by the services
type Options struct {
	LockBuffer   time.Duration    // Predictions close this long before kickoff
	StoreTimeout time.Duration    // Upper bound for one unit of store work
	Now          func() time.Time // Clock, defaults to time.Now
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		LockBuffer:   30 * time.Minute,
		StoreTimeout: 5 * time.Second,
		Now:          time.Now,
	}
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// bounded derives the deadline for one unit of store work
func (o Options) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.StoreTimeout)
}

func matchKey(matchID uint) string {
	return "match:" + strconv.FormatUint(uint64(matchID), 10)
}

func predictionKey(userID, matchID uint) string {
	return "prediction:" + strconv.FormatUint(uint64(userID), 10) + ":" + strconv.FormatUint(uint64(matchID), 10)
}
