// Package session owns the scan lifecycle: it runs scans on a dedicated
// goroutine, enforces the at-most-one-scan rule, buffers progress for
// non-blocking consumers, and hands out facts snapshots and built views.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
)

var (
	// ErrScanInFlight is returned by Start while a scan is already running.
	ErrScanInFlight = errors.New("scan already in flight")
	// ErrSessionClosed is returned by Start after Close.
	ErrSessionClosed = errors.New("session closed")
)

// State is the session scan state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

const defaultProgressBuffer = 64

// Session composes a Scanner with the lifecycle rules the serving layers
// rely on. All methods are safe for concurrent use.
type Session struct {
	root    string
	logger  *zap.Logger
	scanner *scan.Scanner

	ctx    context.Context
	cancel context.CancelFunc

	progress chan scan.Progress

	mu         sync.Mutex
	state      State
	scanErr    error
	scanCancel context.CancelFunc
	scanDone   chan struct{}
}

// SessionOption configures NewSession.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	scanOpts []scan.Option
	buffer   int
}

// WithScanOptions forwards options to the underlying Scanner.
func WithScanOptions(opts ...scan.Option) SessionOption {
	return func(c *sessionConfig) { c.scanOpts = append(c.scanOpts, opts...) }
}

// WithProgressBuffer sets the progress channel capacity.
func WithProgressBuffer(n int) SessionOption {
	return func(c *sessionConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// NewSession builds a session rooted at the given vault directory.
// A nil logger is replaced with a no-op logger.
func NewSession(root string, logger *zap.Logger, opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{buffer: defaultProgressBuffer}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner, err := scan.New(root, cfg.scanOpts...)
	if err != nil {
		return nil, fmt.Errorf("new scanner: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		root:     scanner.Root(),
		logger:   logger,
		scanner:  scanner,
		ctx:      ctx,
		cancel:   cancel,
		progress: make(chan scan.Progress, cfg.buffer),
	}, nil
}

// Root returns the session's absolute vault root.
func (s *Session) Root() string { return s.root }

// Start launches a scan of dir (the session root when dir is empty) on a
// dedicated goroutine. It returns ErrScanInFlight while a scan is running
// and ErrSessionClosed after Close.
func (s *Session) Start(dir string) error {
	if dir == "" {
		dir = s.root
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	if s.state == StateScanning {
		return ErrScanInFlight
	}

	prev := s.state
	s.state = StateScanning
	s.scanErr = nil

	scanCtx, scanCancel := context.WithCancel(s.ctx)
	s.scanCancel = scanCancel
	done := make(chan struct{})
	s.scanDone = done

	s.logger.Info("Scanning vault", zap.String("dir", dir))
	go s.run(scanCtx, scanCancel, dir, prev, done)
	return nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, dir string, prev State, done chan struct{}) {
	defer close(done)
	defer cancel()

	err := s.scanner.Scan(ctx, dir, s.report)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		// Facts are untouched on a failed scan; fall back to whatever
		// state the session was in before Start.
		s.scanErr = err
		s.state = prev
		s.logger.Error("Scan failed", zap.String("dir", dir), zap.Error(err))
		return
	}

	s.state = StateReady
	st := s.scanner.Facts().Stats()
	s.logger.Info("Scan complete",
		zap.String("dir", dir),
		zap.Int("files", st.Files),
		zap.Int("images", st.Images),
		zap.Int("references", st.References),
		zap.Int("tags", st.DistinctTags),
	)
}

// report delivers a progress event, dropping the oldest buffered event when
// the channel is full. It fails only once the session is closed, which makes
// progress delivery failure fatal to the scan without ever blocking on a
// slow consumer.
func (s *Session) report(p scan.Progress) error {
	for {
		select {
		case <-s.ctx.Done():
			return fmt.Errorf("report progress: %w", s.ctx.Err())
		case s.progress <- p:
			return nil
		default:
		}
		select {
		case <-s.progress:
		default:
		}
	}
}

// Poll drains all buffered progress events without blocking and returns the
// most recent one. The second return is false when nothing was pending.
func (s *Session) Poll() (scan.Progress, bool) {
	var (
		last scan.Progress
		ok   bool
	)
	for {
		select {
		case p := <-s.progress:
			last, ok = p, true
		default:
			return last, ok
		}
	}
}

// Cancel requests cancellation of the in-flight scan. It is a no-op when no
// scan is running. The cancelled scan commits whatever it gathered and the
// session lands in StateReady.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateScanning && s.scanCancel != nil {
		s.scanCancel()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last scan, or nil. Start clears it.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanErr
}

// Snapshot returns the current immutable facts snapshot.
func (s *Session) Snapshot() *scan.Facts {
	return s.scanner.Facts()
}

// Reference builds the reference view from the current facts.
func (s *Session) Reference() *graph.View {
	return graph.BuildReference(s.scanner.Facts())
}

// Tag builds the tag view from the current facts.
func (s *Session) Tag(opts graph.TagOptions) *graph.View {
	return graph.BuildTag(s.scanner.Facts(), opts)
}

// Wait blocks until the in-flight scan, if any, has finished.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.scanDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels any in-flight scan, shuts the session down and waits for the
// scan goroutine to exit. Start fails afterwards.
func (s *Session) Close() {
	s.cancel()
	s.Wait()
}
