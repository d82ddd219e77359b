package session

import (
	"encoding/json"
	"sync"
	"time"
)

// ExpectedInput tags the slot a session is currently waiting to fill.
// The zero value means no slot is pending.
type ExpectedInput string

const (
	ExpectNone                    ExpectedInput = ""
	ExpectCustomerIDLastOrder     ExpectedInput = "customer_id_last_order"
	ExpectCustomerIDSpecificOrder ExpectedInput = "customer_id_specific_order"
	ExpectOrderChoice             ExpectedInput = "order_choice"
)

// Turn is one entry in a session's conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-user conversational context. Field access goes through
// the locked accessors; every mutation and read refreshes LastActive so an
// active conversation keeps pushing back its expiry.
type Session struct {
	id         string
	createdAt  time.Time
	lastActive time.Time
	data       map[string]any
	history    []Turn
	expected   ExpectedInput

	mu sync.RWMutex
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		lastActive: now,
		data:       make(map[string]any),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Touch refreshes the activity clock without any other mutation.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) SetData(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.lastActive = time.Now()
}

func (s *Session) Data(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	v, ok := s.data[key]
	return v, ok
}

// DataString returns the value under key if it is a string, else "".
func (s *Session) DataString(key string) string {
	v, ok := s.Data(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// ClearData wipes slot scratch state. The session row itself survives with
// the same id, so the conversation can continue from a clean slate.
func (s *Session) ClearData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
	s.lastActive = time.Now()
}

func (s *Session) AddTurn(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Text: text, Timestamp: time.Now()})
	s.lastActive = time.Now()
}

// History returns the most recent max turns in send order. max <= 0 returns
// everything. The returned slice is a copy.
func (s *Session) History(max int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	turns := s.history
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *Session) SetExpected(e ExpectedInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expected = e
	s.lastActive = time.Now()
}

func (s *Session) Expected() ExpectedInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return s.expected
}

// record is the wire form for drivers that persist sessions off-process.
type record struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active"`
	Data       map[string]any `json:"data"`
	History    []Turn         `json:"history"`
	Expected   ExpectedInput  `json:"expected"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(record{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
		Data:       s.data,
		History:    s.history,
		Expected:   s.expected,
	})
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = r.ID
	s.createdAt = r.CreatedAt
	s.lastActive = r.LastActive
	s.data = r.Data
	if s.data == nil {
		s.data = make(map[string]any)
	}
	s.history = r.History
	s.expected = r.Expected
	return nil
}
