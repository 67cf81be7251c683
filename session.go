package shptrans

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
)

// Option configures a Session.
type Option func(*Session)

// Session holds the run-wide settings shared by every record the
// driver processes: precision mode, cancellation, and logging.
type Session struct {
	ctx           context.Context
	highPrecision bool
	verbose       bool
	logger        Logger
	cancelled     atomic.Bool
}

// Logger is the minimal surface Session needs for progress and warning
// messages; glogLogger below wraps glog, this codebase's default.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
}

type glogLogger struct{}

func (glogLogger) Infof(format string, args ...any)     { glog.Infof(format, args...) }
func (glogLogger) Warningf(format string, args ...any)  { glog.Warningf(format, args...) }
func (glogLogger) Errorf(format string, args ...any)    { glog.Errorf(format, args...) }

// NewSession builds a Session from the given options, defaulting to a
// background context, default precision, and glog-backed logging.
func NewSession(opts ...Option) *Session {
	s := &Session{
		ctx:    context.Background(),
		logger: glogLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ctx != context.Background() {
		go func() {
			<-s.ctx.Done()
			s.cancelled.Store(true)
		}()
	}
	return s
}

// WithContext sets the cancellation source; its Done channel flips the
// Session's cooperative cancel flag.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// WithHighPrecision tightens the Newton-iteration tolerance and raises
// its iteration cap in the projection and grid-shift kernels.
func WithHighPrecision() Option {
	return func(s *Session) { s.highPrecision = true }
}

// WithVerbose enables per-record progress logging.
func WithVerbose() Option {
	return func(s *Session) { s.verbose = true }
}

// WithLogger overrides the default glog-backed logger, mainly for tests.
func WithLogger(l Logger) Option {
	return func(s *Session) { s.logger = l }
}

// HighPrecision reports whether high-precision mode is active.
func (s *Session) HighPrecision() bool { return s.highPrecision }

// Verbose reports whether verbose progress logging is active.
func (s *Session) Verbose() bool { return s.verbose }

// Cancelled reports whether the session has been cancelled, by Cancel or
// by its context firing. Checked by the driver between records and
// before the attribute-copy join.
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// Cancel flips the cooperative cancel flag directly, for callers (such
// as a CLI signal handler) that don't hold the context that was passed
// to WithContext.
func (s *Session) Cancel() { s.cancelled.Store(true) }

// precisionSetter is satisfied by every proj.Projection this system
// builds, via the embedded proj.Base.
type precisionSetter interface {
	SetHighPrecision(bool)
}

// ApplyPrecision propagates the session's high-precision setting onto a
// route's projection and, if present, a grid-shifter chain.
func (s *Session) ApplyPrecision(route *Route, shift *GridShifterSet) {
	if ps, ok := route.Projection.(precisionSetter); ok {
		ps.SetHighPrecision(s.highPrecision)
	}
	if shift == nil {
		return
	}
	for _, hop := range shift.steps {
		hop.HighPrecision = s.highPrecision
	}
}
