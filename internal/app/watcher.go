package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hostiq/internal/adapters/observability"
	"hostiq/internal/domain"
)

const (
	DefaultPollInterval = 3 * time.Second
	defaultMaxFailures  = 5
	maxBackoff          = 30 * time.Second
)

type FetchFunc func(ctx context.Context, id string) (domain.Inspection, error)

// Watcher polls an inspection while the backend reports it PROCESSING.
type Watcher struct {
	Fetch       FetchFunc
	Interval    time.Duration
	MaxFailures int
	// OnUpdate sees every successful poll, including the final one.
	OnUpdate func(domain.Inspection)
}

func NewWatcher(s *Service, interval time.Duration) *Watcher {
	return &Watcher{Fetch: s.Inspection, Interval: interval}
}

// Watch fetches immediately, then every Interval until the status leaves
// PROCESSING. Cancelling ctx stops the poll and returns ctx.Err().
// Transport and 5xx failures back off and retry up to MaxFailures in a
// row, as does 429; other 4xx answers end the watch at once.
func (w *Watcher) Watch(ctx context.Context, id string) (domain.Inspection, error) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxFailures := w.MaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}

	failures := 0
	for {
		insp, err := w.Fetch(ctx, id)
		wait := interval
		if err != nil {
			if ctx.Err() != nil {
				return domain.Inspection{}, ctx.Err()
			}
			observability.ObservePoll("error")
			if status := domain.StatusOf(err); status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return domain.Inspection{}, fmt.Errorf("watch %s: %w", id, err)
			}
			failures++
			if failures >= maxFailures {
				return domain.Inspection{}, fmt.Errorf("watch %s: giving up after %d failures: %w", id, failures, err)
			}
			wait = withJitter(calculateBackoff(failures, interval))
			log.Warn().Err(err).Str("inspection", id).Int("failures", failures).Dur("retry_in", wait).Msg("inspection poll failed")
		} else {
			failures = 0
			observability.ObservePoll(insp.Status)
			if w.OnUpdate != nil {
				w.OnUpdate(insp)
			}
			if insp.Status != domain.StatusProcessing {
				return insp, nil
			}
		}

		if !sleepCtx(ctx, wait) {
			return domain.Inspection{}, ctx.Err()
		}
	}
}

type WatchResult struct {
	ID         string
	Inspection domain.Inspection
	Err        error
}

// WatchMany watches ids with at most workers polls in flight. Results keep
// the order of ids.
func (w *Watcher) WatchMany(ctx context.Context, ids []string, workers int) []WatchResult {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	results := make([]WatchResult, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		results[i].ID = id
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(ids); j++ {
				results[j] = WatchResult{ID: ids[j], Err: err}
			}
			break
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer sem.Release(1)
			insp, err := w.Watch(ctx, id)
			results[i].Inspection, results[i].Err = insp, err
		}(i, id)
	}
	wg.Wait()
	return results
}

// Err joins the per-id errors of a WatchMany run.
func Err(results []WatchResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// withJitter adds up to +25% using crypto/rand, never exceeding maxBackoff.
func withJitter(d time.Duration) time.Duration {
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return d
	}
	f := float64(b[0]) / 255.0 // 0..1
	j := d + time.Duration(0.25*f*float64(d))
	if j > maxBackoff {
		return maxBackoff
	}
	return j
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
