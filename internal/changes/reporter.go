package changes

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-lessons/internal/lessons"
	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

// State tracks the progress of the background query.
type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Change is one lesson touched by the most recent commit.
type Change struct {
	Kind   Kind   `json:"kind"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Topic  string `json:"topic"`
	Lesson string `json:"lesson"`
}

// Snapshot is an immutable view of the reporter result. Changes is empty
// unless State is StateReady.
type Snapshot struct {
	State     State     `json:"state"`
	Changes   []Change  `json:"changes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pending reports whether the query has not completed yet.
func (s Snapshot) Pending() bool { return s.State == StatePending }

// Resolver maps a lesson onto its index record.
type Resolver func(topic, lesson string) (lessons.Record, bool)

// Config configures a Reporter.
type Config struct {
	Enabled   bool
	Dir       string
	Extension string
	Timeout   time.Duration
}

// Reporter queries git once in the background and publishes the result.
// Readers never block: until the query completes Snapshot returns the
// pending state.
type Reporter struct {
	cfg      Config
	runner   Runner
	resolve  Resolver
	urlFor   lessons.URLFunc
	logger   interfaces.Logger
	now      func() time.Time
	snapshot atomic.Pointer[Snapshot]
	start    sync.Once
	done     chan struct{}
}

// Option customises a Reporter.
type Option func(*Reporter)

// WithRunner replaces the git runner.
func WithRunner(runner Runner) Option {
	return func(r *Reporter) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// WithResolver looks up titles in the lesson index.
func WithResolver(resolve Resolver) Option {
	return func(r *Reporter) { r.resolve = resolve }
}

// WithURLFunc sets how URLs are built for lessons missing from the index.
func WithURLFunc(fn lessons.URLFunc) Option {
	return func(r *Reporter) {
		if fn != nil {
			r.urlFor = fn
		}
	}
}

// WithLogger sets the reporter logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReporter returns a Reporter in the pending state.
func NewReporter(cfg Config, opts ...Option) *Reporter {
	if cfg.Extension == "" {
		cfg.Extension = lessons.DefaultExtension
	}
	r := &Reporter{
		cfg:    cfg,
		runner: GitRunner{},
		urlFor: lessons.LessonURL,
		logger: logging.NoOp(),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.snapshot.Store(&Snapshot{State: StatePending, Changes: []Change{}})
	return r
}

// Start launches the query. Calling it more than once has no effect. The
// goroutine exits when the query finishes or ctx is cancelled.
func (r *Reporter) Start(ctx context.Context) {
	r.start.Do(func() {
		go func() {
			defer close(r.done)
			r.publish(r.query(ctx))
		}()
	})
}

// Await blocks until the query completes or ctx ends, returning the latest
// snapshot either way.
func (r *Reporter) Await(ctx context.Context) (Snapshot, error) {
	select {
	case <-r.done:
		return r.Snapshot(), nil
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	}
}

// Done is closed once the query has completed.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

// Snapshot returns the current result.
func (r *Reporter) Snapshot() Snapshot {
	return *r.snapshot.Load()
}

func (r *Reporter) publish(s Snapshot) {
	s.UpdatedAt = r.now()
	r.snapshot.Store(&s)
}

func (r *Reporter) query(ctx context.Context) Snapshot {
	if !r.cfg.Enabled {
		r.logger.Debug("changes.disabled")
		return Snapshot{State: StateReady, Changes: []Change{}}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	output, err := r.runner.Run(ctx, r.cfg.Dir, lastCommitArgs...)
	if err != nil {
		r.logger.Warn("changes.query_failed", "error", err, "dir", r.cfg.Dir)
		return Snapshot{State: StateFailed, Changes: []Change{}}
	}

	changes := r.changesFrom(ParseNameStatus(output))
	r.logger.Info("changes.ready", "changes", len(changes))
	return Snapshot{State: StateReady, Changes: changes}
}

func (r *Reporter) changesFrom(entries []Entry) []Change {
	changes := make([]Change, 0, len(entries))
	for _, entry := range entries {
		topic, lesson, ok := splitLessonPath(entry.Path, r.cfg.Extension)
		if !ok {
			continue
		}
		change := Change{
			Kind:   KindFor(entry.Status),
			Title:  lesson,
			Topic:  topic,
			Lesson: lesson,
		}
		// Indexed lessons report their front-matter title, others the file stem.
		if r.resolve != nil {
			if rec, found := r.resolve(topic, lesson); found {
				change.Title = rec.Title
				change.URL = rec.URL
			}
		}
		if change.URL == "" {
			u, err := r.urlFor(topic, lesson)
			if err != nil {
				r.logger.Warn("changes.url_failed", "error", err, "topic", topic, "lesson", lesson)
				continue
			}
			change.URL = u
		}
		changes = append(changes, change)
	}
	return changes
}
