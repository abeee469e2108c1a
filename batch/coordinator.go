package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"sprint-metrics/pullrequest"
	"sprint-metrics/sprint"
	"sprint-metrics/telemetry"

	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is an immutable view of the coordinator state. Buckets are only
// meaningful in the Ready state; use Data to read them.
type Snapshot struct {
	State      State
	Err        string
	Generation uint64
	buckets    []SprintPullRequests
	warnings   []*pullrequest.InvalidRecordError
}

// Data returns the buckets and true when the snapshot is Ready
func (s Snapshot) Data() ([]SprintPullRequests, bool) {
	if s.State != Ready {
		return nil, false
	}
	return s.buckets, true
}

// Warnings returns the records dropped by the fetch that produced the data
func (s Snapshot) Warnings() []*pullrequest.InvalidRecordError {
	return s.warnings
}

// Coordinator runs FetchBuckets at most once per distinct sprint list and
// holds the Idle/Loading/Ready/Failed state of the latest list. Each load is
// tagged with a generation; a load whose sprint list was superseded while it
// was in flight does not overwrite the newer state.
type Coordinator struct {
	fetcher   Fetcher
	logger    *zap.Logger
	telemetry *telemetry.Collector

	mu         sync.Mutex
	key        string
	generation uint64
	snapshot   Snapshot
	done       chan struct{}
}

// NewCoordinator creates a coordinator in the Idle state
func NewCoordinator(f Fetcher, logger *zap.Logger, t *telemetry.Collector) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{fetcher: f, logger: logger, telemetry: t}
}

// Snapshot returns the current state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Reset returns the coordinator to Idle so that the next Load fetches again
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.key = ""
	c.snapshot = Snapshot{State: Idle, Generation: c.generation}
	c.done = nil
}

// Load moves to Loading and fetches when sprints differ from the last list
// seen. For the same list it waits for the in-flight load (or returns the
// settled Ready/Failed state) without fetching again; a failure stays
// terminal until the list changes or Reset is called.
func (c *Coordinator) Load(ctx context.Context, sprints []sprint.Sprint) Snapshot {
	key := Key(sprints)

	c.mu.Lock()
	if c.done != nil && key == c.key {
		done := c.done
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return c.Snapshot()
	}

	c.generation++
	gen := c.generation
	done := make(chan struct{})
	c.key = key
	c.done = done
	c.snapshot = Snapshot{State: Loading, Generation: gen}
	c.mu.Unlock()

	c.logger.Debug("loading sprint pull requests", zap.Int("sprints", len(sprints)), zap.Uint64("generation", gen))
	buckets, warnings, err := FetchBuckets(ctx, c.fetcher, sprints)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)

	if gen != c.generation {
		c.logger.Info("discarding superseded batch result",
			zap.Uint64("generation", gen),
			zap.Uint64("current", c.generation),
		)
		return c.snapshot
	}

	if err != nil {
		c.logger.Error("batch fetch failed", zap.Uint64("generation", gen), zap.Error(err))
		c.snapshot = Snapshot{State: Failed, Err: err.Error(), Generation: gen}
		return c.snapshot
	}

	total := 0
	for _, b := range buckets {
		total += len(b.PullRequests)
		c.telemetry.ObserveBucket(len(b.PullRequests))
	}
	c.logger.Info("batch fetch complete",
		zap.Uint64("generation", gen),
		zap.Int("sprints", len(buckets)),
		zap.Int("pull_requests", total),
		zap.Int("dropped", len(warnings)),
	)
	c.snapshot = Snapshot{State: Ready, Generation: gen, buckets: buckets, warnings: warnings}
	return c.snapshot
}

// Key identifies a sprint list by content
func Key(sprints []sprint.Sprint) string {
	data, err := json.Marshal(sprints)
	if err != nil {
		// only fails for dates outside years 0-9999
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
