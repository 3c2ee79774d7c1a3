package task

import (
	"time"

	"github.com/phrazzld/imagegen-api/internal/config"
	"github.com/sethvargo/go-retry"
)

// Progress labels shown while a task is in progress.
const (
	LabelGenerating = "Generating your image..."
	LabelStill      = "Still generating..."
	LabelAlmostDone = "Almost done..."
)

const (
	stillThreshold  = 5
	almostThreshold = 15
	defaultInterval = 2 * time.Second
	defaultAttempts = 30
)

// Policy holds the polling schedule for a Controller.
type Policy struct {
	// Interval is the fixed delay between status queries
	Interval time.Duration

	// MaxAttempts is the number of InProgress responses tolerated before
	// the run times out
	MaxAttempts int
}

// DefaultPolicy returns the standard schedule: a query every 2 seconds, at
// most 30 of them.
func DefaultPolicy() Policy {
	return Policy{
		Interval:    defaultInterval,
		MaxAttempts: defaultAttempts,
	}
}

// PolicyFromConfig builds a Policy from polling configuration.
func PolicyFromConfig(cfg config.PollingConfig) Policy {
	return Policy{
		Interval:    cfg.Interval,
		MaxAttempts: cfg.MaxAttempts,
	}.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultAttempts
	}
	return p
}

// Budget is the longest a run can spend polling before it times out.
func (p Policy) Budget() time.Duration {
	p = p.withDefaults()
	return time.Duration(p.MaxAttempts-1) * p.Interval
}

// backoff returns the schedule for one run. The first query is issued
// immediately, so only MaxAttempts-1 delays are ever needed.
func (p Policy) backoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), retry.NewConstant(p.Interval))
}

// Label returns the progress text for the given attempt count.
func Label(attempt int) string {
	switch {
	case attempt < stillThreshold:
		return LabelGenerating
	case attempt < almostThreshold:
		return LabelStill
	default:
		return LabelAlmostDone
	}
}
