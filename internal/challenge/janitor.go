package challenge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	internalsettings "github.com/swordfighters/admin-api/internal/settings"
	log "github.com/sirupsen/logrus"
)

// Janitor periodically clears expired challenges so stale ceremony state does
// not accumulate. Sweeping is housekeeping only; challenge validity is
// enforced at every verify step regardless.
type Janitor struct {
	store    *Store
	interval time.Duration
}

// NewJanitor constructs a Janitor with the default sweep interval.
func NewJanitor(store *Store) *Janitor {
	if store == nil {
		return nil
	}
	return &Janitor{
		store:    store,
		interval: time.Duration(internalsettings.DefaultChallengeSweepIntervalSeconds) * time.Second,
	}
}

// Start launches the sweep loop in a background goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go j.run(ctx)
	log.Infof("challenge janitor started (interval=%s)", j.interval)
}

func (j *Janitor) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		j.SweepOnce(ctx)
		timer := time.NewTimer(j.sweepInterval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// SweepOnce runs a single sweep, logging and swallowing failures.
func (j *Janitor) SweepOnce(ctx context.Context) {
	if j == nil || j.store == nil {
		return
	}
	count, errSweep := j.store.SweepExpired(ctx, time.Now())
	if errSweep != nil {
		log.WithError(errSweep).Warn("challenge janitor: sweep failed")
		return
	}
	if count > 0 {
		log.Infof("challenge janitor: cleared %d expired challenges", count)
	}
}

// SweepAsync runs a best-effort sweep without blocking the caller. Used on
// ceremony-begin traffic so reclamation keeps pace even without the
// background loop.
func (j *Janitor) SweepAsync() {
	if j == nil {
		return
	}
	go j.SweepOnce(context.Background())
}

func (j *Janitor) sweepInterval() time.Duration {
	interval := j.interval
	if raw, ok := internalsettings.DBConfigValue(internalsettings.ChallengeSweepIntervalSecondsKey); ok {
		if seconds, okParse := parseConfigSeconds(raw); okParse && seconds > 0 {
			interval = time.Duration(seconds) * time.Second
		}
	}
	if interval <= 0 {
		interval = time.Duration(internalsettings.DefaultChallengeSweepIntervalSeconds) * time.Second
	}
	return interval
}

func parseConfigSeconds(raw json.RawMessage) (int, bool) {
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n, true
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(s)); errParse == nil {
			return parsed, true
		}
	}
	return 0, false
}
