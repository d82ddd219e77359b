package session

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/mkarlsen/shopchat/pkg/logger"
)

// Manager owns session lifecycle: lookup-or-create, explicit removal, and
// TTL expiry. A garbled or unknown client-supplied id never breaks the
// conversation; it just starts a fresh session.
type Manager struct {
	store Store
	ttl   time.Duration

	gatesMu sync.Mutex
	gates   map[string]*turnGate
}

// turnGate serializes turns for one session id. Gates are refcounted so the
// map only holds ids with a turn in flight.
type turnGate struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{store: store, ttl: ttl, gates: make(map[string]*turnGate)}
}

// Resolve returns the session for candidateID, creating one when the id is
// empty, the literal "none"/"null", unknown, or the store fails. Expired
// sessions are swept lazily first, so a stale id also yields a new session.
func (m *Manager) Resolve(ctx context.Context, candidateID string) *Session {
	m.sweep(ctx)

	if isUnresolved(candidateID) {
		return m.create(ctx)
	}

	sess, err := m.store.Load(ctx, candidateID)
	if err != nil {
		logger.WarnCF("session", "Session load failed, issuing a new session", map[string]interface{}{
			"session_id": candidateID,
			"error":      err.Error(),
		})
		return m.create(ctx)
	}
	if sess == nil {
		logger.InfoCF("session", "Session id not found or expired, creating new", map[string]interface{}{
			"session_id": candidateID,
		})
		return m.create(ctx)
	}

	sess.Touch()
	return sess
}

func isUnresolved(id string) bool {
	return id == "" || id == "none" || id == "None" || id == "null"
}

// BeginTurn resolves the session for candidateID and serializes the turn
// against every other in-flight turn carrying the same id. The lock is keyed
// by id in the Manager and held until the returned release func runs, so
// drivers that hand back a fresh object per Load still see whole turns run
// one after the other: the next turn's Load happens after this turn's Save.
// The session must not be touched after release.
func (m *Manager) BeginTurn(ctx context.Context, candidateID string) (*Session, func()) {
	if isUnresolved(candidateID) {
		sess := m.create(ctx)
		return sess, m.lockTurn(sess.ID())
	}

	release := m.lockTurn(candidateID)
	sess := m.Resolve(ctx, candidateID)
	if sess.ID() == candidateID {
		return sess, release
	}

	// The id was stale or unknown and a replacement was minted. Nobody else
	// can know the new id yet, so moving the gate cannot lose an update.
	release()
	return sess, m.lockTurn(sess.ID())
}

func (m *Manager) lockTurn(id string) func() {
	m.gatesMu.Lock()
	g := m.gates[id]
	if g == nil {
		g = &turnGate{}
		m.gates[id] = g
	}
	g.refs++
	m.gatesMu.Unlock()

	g.mu.Lock()
	return func() {
		g.mu.Unlock()
		m.gatesMu.Lock()
		g.refs--
		if g.refs == 0 {
			delete(m.gates, id)
		}
		m.gatesMu.Unlock()
	}
}

func (m *Manager) create(ctx context.Context) *Session {
	sess := newSession(uuid.NewString())
	if err := m.store.Save(ctx, sess); err != nil {
		logger.ErrorCF("session", "Session save failed", map[string]interface{}{
			"session_id": sess.ID(),
			"error":      err.Error(),
		})
	}
	logger.InfoCF("session", "Created session", map[string]interface{}{"session_id": sess.ID()})
	return sess
}

// Save writes the session back through the driver. No-op cost for the
// memory driver; required after each turn for serializing drivers.
func (m *Manager) Save(ctx context.Context, sess *Session) {
	if err := m.store.Save(ctx, sess); err != nil {
		logger.WarnCF("session", "Session persist failed", map[string]interface{}{
			"session_id": sess.ID(),
			"error":      err.Error(),
		})
	}
}

// End removes the session outright, for logout-style flows.
func (m *Manager) End(ctx context.Context, id string) {
	if err := m.store.Delete(ctx, id); err != nil {
		logger.WarnCF("session", "Session delete failed", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
	}
}

func (m *Manager) sweep(ctx context.Context) {
	removed, err := m.store.Sweep(ctx, m.ttl)
	if err != nil {
		logger.WarnCF("session", "Session sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(removed) > 0 {
		logger.InfoCF("session", "Expired sessions removed", map[string]interface{}{"count": len(removed)})
	}
}

// RunSweeper runs periodic expiry on a cron schedule until ctx is done.
// The lazy sweep in Resolve already guarantees correctness; this only keeps
// memory pressure down during quiet periods.
func (m *Manager) RunSweeper(ctx context.Context, schedule string) {
	gron := gronx.New()
	if !gron.IsValid(schedule) {
		logger.WarnCF("session", "Invalid sweep schedule, background sweeper disabled", map[string]interface{}{
			"schedule": schedule,
		})
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := gron.IsDue(schedule, time.Now())
			if err != nil || !due {
				continue
			}
			m.sweep(ctx)
		}
	}
}
