package portal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// BonusClaimer claims the daily bonus on the server
type BonusClaimer interface {
	ClaimDailyBonus(ctx context.Context, kidID int64, date string) (*BonusResult, error)
}

type day struct {
	kidID int64
	date  string
}

// BonusWatcher claims the daily bonus once all of a day's tracked items are
// confirmed done. Each day is claimed at most once per watcher; the server
// ledger rejects repeats from other clients.
type BonusWatcher struct {
	tracker *Tracker
	claimer BonusClaimer
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	claimed map[day]*BonusResult
}

// NewBonusWatcher creates a watcher over tracker
func NewBonusWatcher(tracker *Tracker, claimer BonusClaimer, logger *zap.SugaredLogger) *BonusWatcher {
	return &BonusWatcher{
		tracker: tracker,
		claimer: claimer,
		logger:  logger,
		claimed: make(map[day]*BonusResult),
	}
}

// Start subscribes to the tracker and watches changes in the background
// until ctx is cancelled. The returned channel is closed when the watcher
// has stopped.
func (w *BonusWatcher) Start(ctx context.Context) <-chan struct{} {
	changes := w.tracker.Subscribe(ctx)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		for c := range changes {
			if !c.Confirmed || !c.Done {
				continue
			}
			w.check(ctx, c.Key.KidID, c.Key.Date)
		}
	}()
	return stopped
}

// Claimed returns the bonus result for a day once it has been claimed
func (w *BonusWatcher) Claimed(kidID int64, date string) (*BonusResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	result, ok := w.claimed[day{kidID, date}]
	return result, ok
}

func (w *BonusWatcher) check(ctx context.Context, kidID int64, date string) {
	d := day{kidID, date}
	if _, done := w.Claimed(kidID, date); done || !w.tracker.AllDone(kidID, date) {
		return
	}

	result, err := w.claimer.ClaimDailyBonus(ctx, kidID, date)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			w.logger.Debugw("day not complete on server yet", "kid_id", kidID, "date", date)
			return
		}
		w.logger.Warnw("failed to claim daily bonus", "kid_id", kidID, "date", date, "error", err)
		return
	}

	w.mu.Lock()
	w.claimed[d] = result
	w.mu.Unlock()

	if result.Awarded {
		w.logger.Infow("daily bonus awarded", "kid_id", kidID, "date", date, "amount", result.Amount)
	}
}
