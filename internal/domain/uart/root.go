package uart

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Time0o/uartd/internal/infrastructure/logging"
	"github.com/Time0o/uartd/internal/infrastructure/monitoring"
	"github.com/Time0o/uartd/internal/shared/id"
)

// DefaultDetectDeadline bounds the geometry probe. A terminal that has
// not answered within this window is treated as one that answered
// garbage: the session comes up with Size{}.
const DefaultDetectDeadline = 2 * time.Second

// PolicyRule carries the session attributes a resolved policy grants.
type PolicyRule struct {
	// Line is the required uart line index. nil means the rule omitted
	// it, which refuses the session.
	Line *int

	// Baudrate is the initial rate; 0 leaves the driver default.
	Baudrate int

	// DetectSize enables the geometry probe at construction.
	DetectSize bool
}

// PolicyResolver maps a client identity label to a policy rule.
type PolicyResolver interface {
	Resolve(label string) (PolicyRule, bool)
}

// SessionInfo is the public representation of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Line      int       `json:"line"`
	Baud      int       `json:"baud"`
	Size      Size      `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Root arbitrates session creation: it resolves a client identity label
// against the policy, turns the matched rule into a concrete line
// index/baud rate/detect flag, and constructs the Session. It also owns
// the session table and dispatches every session operation through the
// shared entrypoint.
type Root struct {
	factory  DriverFactory
	policy   PolicyResolver
	ep       *Entrypoint
	log      *logging.Logger
	metrics  *monitoring.Metrics
	deadline time.Duration

	// touched only on the entrypoint
	sessions map[id.SessionID]*Session
}

// NewRoot creates a root over a driver factory and a policy resolver.
func NewRoot(factory DriverFactory, policy PolicyResolver, log *logging.Logger) *Root {
	return &Root{
		factory:  factory,
		policy:   policy,
		ep:       NewEntrypoint(),
		log:      log,
		deadline: DefaultDetectDeadline,
		sessions: make(map[id.SessionID]*Session),
	}
}

// WithMetrics attaches prometheus instrumentation.
func (r *Root) WithMetrics(m *monitoring.Metrics) *Root {
	r.metrics = m
	return r
}

// WithDetectDeadline overrides the geometry probe deadline.
func (r *Root) WithDetectDeadline(d time.Duration) *Root {
	r.deadline = d
	return r
}

// Start launches the dispatch context.
func (r *Root) Start() { r.ep.Start() }

// Stop tears down all sessions and halts the dispatch context.
func (r *Root) Stop() {
	r.ep.Exec(func() {
		for sid, s := range r.sessions {
			s.close()
			r.factory.Release(s.line)
			delete(r.sessions, sid)
			if r.metrics != nil {
				r.metrics.RecordSessionClosed()
			}
		}
	})
	r.ep.Stop()
}

// CreateSession resolves label against the policy and constructs a
// session. A label with no matching rule, or a rule without a uart
// attribute, fails with ErrUnavailable and allocates nothing.
func (r *Root) CreateSession(label string) (info SessionInfo, err error) {
	r.ep.Exec(func() { info, err = r.createSession(label) })
	return info, err
}

func (r *Root) createSession(label string) (SessionInfo, error) {
	rule, ok := r.policy.Resolve(label)
	if !ok {
		r.log.Error("invalid session request, no matching policy",
			zap.String("label", label))
		r.countFailure("no_policy")
		return SessionInfo{}, fmt.Errorf("%w: no policy for label %q", ErrUnavailable, label)
	}
	if rule.Line == nil {
		r.log.Error("missing uart attribute in policy definition",
			zap.String("label", label))
		r.countFailure("missing_uart")
		return SessionInfo{}, fmt.Errorf("%w: missing uart attribute for label %q", ErrUnavailable, label)
	}

	buf := NewIOBuffer()
	bridge := NewNotificationBridge()

	drv, err := r.factory.Create(*rule.Line, rule.Baudrate, bridge.CharArrived)
	if err != nil {
		r.log.Error("driver creation failed",
			zap.String("label", label),
			zap.Int("line", *rule.Line),
			zap.Error(err))
		r.countFailure("driver")
		return SessionInfo{}, fmt.Errorf("%w: line %d: %v", ErrUnavailable, *rule.Line, err)
	}
	bridge.Bind(drv.CharAvail)

	size := Size{}
	if rule.DetectSize {
		size = DetectSize(drv, r.deadline)
		if r.metrics != nil {
			r.metrics.RecordSizeDetect(size != Size{})
		}
		if (size != Size{}) {
			r.log.Info("detected terminal size",
				zap.Int("width", size.Width),
				zap.Int("height", size.Height))
		}
	}

	s := &Session{
		id:      id.NewSessionID(),
		label:   label,
		line:    *rule.Line,
		baud:    rule.Baudrate,
		created: time.Now(),
		drv:     drv,
		buf:     buf,
		bridge:  bridge,
		size:    size,
	}
	r.sessions[s.id] = s

	if r.metrics != nil {
		r.metrics.RecordSessionCreated()
	}
	r.log.Info("session created",
		zap.String("session", string(s.id)),
		zap.String("label", label),
		zap.Int("line", s.line),
		zap.Int("baud", s.baud))

	return r.info(s), nil
}

// CloseSession tears a session down and releases its line and buffer.
func (r *Root) CloseSession(sid id.SessionID) error {
	var err error
	r.ep.Exec(func() {
		s, ok := r.sessions[sid]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrNoSession, sid)
			return
		}
		s.close()
		r.factory.Release(s.line)
		delete(r.sessions, sid)
		if r.metrics != nil {
			r.metrics.RecordSessionClosed()
		}
		r.log.Info("session closed", zap.String("session", string(sid)))
	})
	return err
}

// List returns the public view of every active session.
func (r *Root) List() []SessionInfo {
	var out []SessionInfo
	r.ep.Exec(func() {
		for _, s := range r.sessions {
			out = append(out, r.info(s))
		}
	})
	return out
}

// Info returns the public view of one session.
func (r *Root) Info(sid id.SessionID) (SessionInfo, error) {
	var info SessionInfo
	err := r.withSession(sid, func(s *Session) {
		info = r.info(s)
	})
	return info, err
}

// SizeOf returns the construction-time geometry of a session.
func (r *Root) SizeOf(sid id.SessionID) (Size, error) {
	var size Size
	err := r.withSession(sid, func(s *Session) { size = s.Size() })
	return size, err
}

// Avail reports whether a session's line has data waiting.
func (r *Root) Avail(sid id.SessionID) (bool, error) {
	var avail bool
	err := r.withSession(sid, func(s *Session) { avail = s.Avail() })
	return avail, err
}

// SetBaudRate changes a session's line rate.
func (r *Root) SetBaudRate(sid id.SessionID, bps int) error {
	return r.withSession(sid, func(s *Session) { s.SetBaudRate(bps) })
}

// Read drains up to n bytes (clamped to the buffer capacity) from the
// session's line and returns a copy of them.
func (r *Root) Read(sid id.SessionID, n int) ([]byte, error) {
	var out []byte
	err := r.withSession(sid, func(s *Session) {
		count := s.ReadBuf(n)
		out = append([]byte(nil), s.Buffer().Bytes()[:count]...)
		if r.metrics != nil {
			r.metrics.RecordRead(strconv.Itoa(s.line), count)
		}
	})
	return out, err
}

// Write copies data into the session's buffer (truncating to its
// capacity) and transmits it. It returns the count transmitted.
func (r *Root) Write(sid id.SessionID, data []byte) (int, error) {
	var n int
	err := r.withSession(sid, func(s *Session) {
		n = copy(s.Buffer().Bytes(), data)
		s.WriteBuf(len(data))
		if r.metrics != nil {
			r.metrics.RecordWrite(strconv.Itoa(s.line), n)
		}
	})
	return n, err
}

// ConnectedSigh fires the target immediately; the session is ready the
// moment it exists.
func (r *Root) ConnectedSigh(sid id.SessionID, t NotifyTarget) error {
	return r.withSession(sid, func(s *Session) { s.ConnectedSigh(t) })
}

// ReadAvailSigh registers the data-available target with catch-up
// semantics.
func (r *Root) ReadAvailSigh(sid id.SessionID, t NotifyTarget) error {
	return r.withSession(sid, func(s *Session) { s.ReadAvailSigh(t) })
}

func (r *Root) withSession(sid id.SessionID, fn func(*Session)) error {
	var err error
	r.ep.Exec(func() {
		s, ok := r.sessions[sid]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrNoSession, sid)
			return
		}
		fn(s)
	})
	return err
}

func (r *Root) info(s *Session) SessionInfo {
	return SessionInfo{
		ID:        string(s.id),
		Label:     s.label,
		Line:      s.line,
		Baud:      s.baud,
		Size:      s.size,
		CreatedAt: s.created,
	}
}

func (r *Root) countFailure(reason string) {
	if r.metrics != nil {
		r.metrics.RecordSessionFailure(reason)
	}
}
