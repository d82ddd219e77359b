package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkarlsen/shopchat/pkg/connectors"
	"github.com/mkarlsen/shopchat/pkg/intent"
	"github.com/mkarlsen/shopchat/pkg/providers"
	"github.com/mkarlsen/shopchat/pkg/session"
)

type fakeOrders struct {
	byCustomer      map[string][]connectors.Order
	byPriority      []connectors.Order
	err             error
	byCustomerCalls int
}

func (f *fakeOrders) ByCustomer(_ context.Context, customerID string) ([]connectors.Order, error) {
	f.byCustomerCalls++
	if f.err != nil {
		return nil, f.err
	}
	orders, ok := f.byCustomer[customerID]
	if !ok {
		return nil, connectors.ErrNotFound
	}
	return orders, nil
}

func (f *fakeOrders) ByPriority(_ context.Context, _ string) ([]connectors.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPriority, nil
}

type fakeProducts struct {
	results   []connectors.Product
	err       error
	lastQuery string
}

func (f *fakeProducts) Search(_ context.Context, query string, _ int, _ float64) ([]connectors.Product, error) {
	f.lastQuery = query
	return f.results, f.err
}

type fakeAnalytics struct {
	sales    []connectors.CategorySales
	profit   []connectors.GenderProfit
	shipping connectors.ShippingSummary
	top      []connectors.Order
	err      error
}

func (f *fakeAnalytics) SalesByCategory(_ context.Context) ([]connectors.CategorySales, error) {
	return f.sales, f.err
}

func (f *fakeAnalytics) ProfitByGender(_ context.Context) ([]connectors.GenderProfit, error) {
	return f.profit, f.err
}

func (f *fakeAnalytics) ShippingSummary(_ context.Context) (connectors.ShippingSummary, error) {
	return f.shipping, f.err
}

func (f *fakeAnalytics) HighProfitProducts(_ context.Context) ([]connectors.Order, error) {
	return f.top, f.err
}

type fakeAssistant struct {
	answer     providers.Answer
	err        error
	lastPrompt string
}

func (f *fakeAssistant) Ask(_ context.Context, prompt string) (providers.Answer, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return providers.Answer{}, f.err
	}
	return f.answer, nil
}

type deps struct {
	engine    *Engine
	orders    *fakeOrders
	products  *fakeProducts
	analytics *fakeAnalytics
	assistant *fakeAssistant
	store     *session.MemoryStore
}

func newTestEngine(t *testing.T) *deps {
	t.Helper()
	d := &deps{
		orders:    &fakeOrders{byCustomer: map[string][]connectors.Order{}},
		products:  &fakeProducts{},
		analytics: &fakeAnalytics{},
		assistant: &fakeAssistant{err: errors.New("not configured")},
		store:     session.NewMemoryStore(),
	}
	sessions := session.NewManager(d.store, 30*time.Minute)
	resolver := intent.NewResolver(intent.NewLexicalScorer(), 0.5, d.assistant)
	d.engine = NewEngine(sessions, resolver, d.orders, d.products, d.analytics, d.assistant)
	return d
}

func TestProcess_GreetingAndThanks(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()

	hello := d.engine.Process(ctx, "", "Hello!")
	if hello.SessionID == "" {
		t.Fatal("reply should carry a session id")
	}
	if !strings.Contains(hello.Text, "How can I help") {
		t.Errorf("greeting reply = %q", hello.Text)
	}

	thanks := d.engine.Process(ctx, hello.SessionID, "thanks")
	if !strings.Contains(thanks.Text, "You're welcome") {
		t.Errorf("thanks reply = %q", thanks.Text)
	}
	if thanks.SessionID != hello.SessionID {
		t.Error("session id should be stable across turns")
	}
}

func TestProcess_ThanksKeepsPendingAsk(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	if !strings.Contains(first.Text, "Customer ID") {
		t.Fatalf("should ask for a customer id, got %q", first.Text)
	}

	thanks := d.engine.Process(ctx, first.SessionID, "thanks")
	if !strings.Contains(thanks.Text, "5-digit Customer ID") {
		t.Errorf("mid-flow thanks should remind about the pending ask, got %q", thanks.Text)
	}

	// The slot must still be armed.
	after := d.engine.Process(ctx, first.SessionID, "no digits here")
	if !strings.Contains(after.Text, "5-digit Customer ID") {
		t.Errorf("slot should survive a thanks interjection, got %q", after.Text)
	}
}

func TestProcess_OrderStatusFlow_SingleMatch(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{
		{OrderDate: "2024-02-20", Product: "Wireless Headphones", Category: "Electronics", Sales: 89.99, ShippingCost: 5.5, Priority: "Medium"},
		{OrderDate: "2024-01-10", Product: "Desk Lamp", Category: "Home", Sales: 20, ShippingCost: 3, Priority: "Low"},
	}

	first := d.engine.Process(ctx, "", "what is the status of my headphones order?")
	if !strings.Contains(first.Text, "headphones") || !strings.Contains(first.Text, "Customer ID") {
		t.Fatalf("ask = %q", first.Text)
	}

	second := d.engine.Process(ctx, first.SessionID, "my id is 12345")
	if !strings.Contains(second.Text, "Wireless Headphones") || !strings.Contains(second.Text, "February 20, 2024") {
		t.Errorf("single keyword match should answer directly, got %q", second.Text)
	}
	if d.orders.byCustomerCalls != 1 {
		t.Errorf("expected one order fetch, got %d", d.orders.byCustomerCalls)
	}
}

func TestProcess_OrderStatusFlow_Disambiguation(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{
		{OrderDate: "2024-01-15", Product: "Wired Headphones", Sales: 30, ShippingCost: 2, Priority: "Low"},
		{OrderDate: "2024-02-20", Product: "Wireless Headphones", Sales: 90, ShippingCost: 5, Priority: "High"},
	}

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	list := d.engine.Process(ctx, first.SessionID, "it's 12345")
	if !strings.Contains(list.Text, "I found 2 headphones orders") {
		t.Fatalf("expected disambiguation list, got %q", list.Text)
	}
}

func TestProcess_FirstFiveDigitTokenWins(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{{OrderDate: "2024-01-15", Product: "Lamp"}}

	first := d.engine.Process(ctx, "", "show me my last order")
	reply := d.engine.Process(ctx, first.SessionID, "either 98765 or 12345")
	if !strings.Contains(reply.Text, "No orders found for Customer ID 98765") {
		t.Errorf("first 5-digit token should win, got %q", reply.Text)
	}
}

func TestProcess_OrderChoiceSelection(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{
		{OrderDate: "2024-01-15", Product: "Wired Headphones", Sales: 30, ShippingCost: 2, Priority: "Low"},
		{OrderDate: "2024-02-20", Product: "Wireless Headphones", Sales: 90, ShippingCost: 5, Priority: "High"},
	}

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	list := d.engine.Process(ctx, first.SessionID, "12345")
	if !strings.Contains(list.Text, "Which one") {
		t.Fatalf("expected choice prompt, got %q", list.Text)
	}

	// List is most-recent first, so "2" is the older wired pair.
	pick := d.engine.Process(ctx, first.SessionID, "2")
	if !strings.Contains(pick.Text, "Wired Headphones") {
		t.Errorf("choice 2 should pick the older order, got %q", pick.Text)
	}
}

func TestProcess_OrderChoiceRecent(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{
		{OrderDate: "2024-01-15", Product: "Wired Headphones", Sales: 30, ShippingCost: 2},
		{OrderDate: "2024-02-20", Product: "Wireless Headphones", Sales: 90, ShippingCost: 5},
	}

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	d.engine.Process(ctx, first.SessionID, "12345")
	pick := d.engine.Process(ctx, first.SessionID, "the most recent one")
	if !strings.Contains(pick.Text, "Wireless Headphones") {
		t.Errorf("recency phrasing should pick the newest order, got %q", pick.Text)
	}
}

func TestProcess_OrderChoiceOutOfRangeReprompts(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{
		{OrderDate: "2024-01-15", Product: "Wired Headphones"},
		{OrderDate: "2024-02-20", Product: "Wireless Headphones"},
	}

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	d.engine.Process(ctx, first.SessionID, "12345")

	bad := d.engine.Process(ctx, first.SessionID, "9")
	if !strings.Contains(bad.Text, "didn't get which one") {
		t.Fatalf("out-of-range choice should re-prompt, got %q", bad.Text)
	}

	// The list must survive the re-prompt.
	pick := d.engine.Process(ctx, first.SessionID, "1")
	if !strings.Contains(pick.Text, "Wireless Headphones") {
		t.Errorf("list should survive a bad choice, got %q", pick.Text)
	}
}

func TestProcess_UnmatchedKeywordFallsBackToRecent(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["12345"] = []connectors.Order{
		{OrderDate: "2024-02-20", Product: "Desk Lamp"},
		{OrderDate: "2024-01-15", Product: "Office Chair"},
	}

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	reply := d.engine.Process(ctx, first.SessionID, "12345")
	if !strings.Contains(reply.Text, "couldn't find a headphones order") {
		t.Fatalf("unmatched keyword should explain itself, got %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Desk Lamp") {
		t.Errorf("should list recent orders instead, got %q", reply.Text)
	}
}

func TestProcess_LastOrderFlow(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.orders.byCustomer["54321"] = []connectors.Order{
		{OrderDate: "2024-03-01", Product: "Monitor", Sales: 199.99, ShippingCost: 9.99, Priority: "High"},
	}

	first := d.engine.Process(ctx, "", "show me my last order")
	if !strings.Contains(first.Text, "Customer ID") {
		t.Fatalf("should ask for a customer id, got %q", first.Text)
	}

	second := d.engine.Process(ctx, first.SessionID, "54321")
	if !strings.Contains(second.Text, "Your only order (Customer ID 54321)") {
		t.Errorf("last-order reply = %q", second.Text)
	}
}

func TestProcess_UnknownCustomerVsTransportError(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()

	first := d.engine.Process(ctx, "", "show me my last order")
	miss := d.engine.Process(ctx, first.SessionID, "99999")
	if !strings.Contains(miss.Text, "No orders found for Customer ID 99999") {
		t.Errorf("unknown customer reply = %q", miss.Text)
	}

	d.orders.err = errors.New("connection refused")
	again := d.engine.Process(ctx, "", "show me my last order")
	fail := d.engine.Process(ctx, again.SessionID, "12345")
	if !strings.Contains(fail.Text, "couldn't fetch your orders") {
		t.Errorf("transport failure reply = %q", fail.Text)
	}
}

func TestProcess_CancelClearsAnyState(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()

	first := d.engine.Process(ctx, "", "what is the status of my headphones order")
	cancel := d.engine.Process(ctx, first.SessionID, "nevermind")
	if !strings.Contains(cancel.Text, "start fresh") {
		t.Fatalf("cancel reply = %q", cancel.Text)
	}

	// A bare number is no longer consumed as a slot.
	d.assistant.err = nil
	d.assistant.answer = providers.Answer{Content: "Numbers are fun."}
	after := d.engine.Process(ctx, first.SessionID, "12345")
	if strings.Contains(after.Text, "order") && strings.Contains(after.Text, "Customer ID") {
		t.Errorf("cancel should have disarmed the slot, got %q", after.Text)
	}
}

func TestProcess_PriceBoundGoesToProductSearch(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.products.results = []connectors.Product{
		{Title: "Budget Buds", Price: fptr(39.99), Rating: 4.1},
		{Title: "Wired Classic", Price: fptr(25), Rating: 4.4},
	}

	reply := d.engine.Process(ctx, "", "show me headphones under $50")
	if !strings.Contains(reply.Text, "Budget Buds") {
		t.Errorf("price-bound query should hit product search, got %q", reply.Text)
	}
	if d.products.lastQuery == "" {
		t.Error("product service was never called")
	}
}

func TestProcess_AnalyticsIntents(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.analytics.sales = []connectors.CategorySales{{Category: "Electronics", Sales: 5000}}
	d.analytics.shipping = connectors.ShippingSummary{Average: 7.5, Min: 1, Max: 20}

	sales := d.engine.Process(ctx, "", "what is the total sales by category")
	if !strings.Contains(sales.Text, "Electronics") {
		t.Errorf("sales reply = %q", sales.Text)
	}

	ship := d.engine.Process(ctx, "", "show me the shipping cost summary")
	if !strings.Contains(ship.Text, "$7.50") {
		t.Errorf("shipping reply = %q", ship.Text)
	}
}

func TestProcess_HighPriorityCapsAtFive(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		d.orders.byPriority = append(d.orders.byPriority, connectors.Order{
			OrderDate: "2024-01-0" + string(rune('1'+i)), Product: "Thing", CustomerID: 10000 + i,
		})
	}

	reply := d.engine.Process(ctx, "", "show me high priority orders")
	if !strings.Contains(reply.Text, "5 most recent high-priority orders") {
		t.Errorf("priority reply = %q", reply.Text)
	}
}

func TestProcess_FallbackUsesAssistant(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.assistant.err = nil
	d.assistant.answer = providers.Answer{
		Content: "Sea cucumbers are echinoderms.",
		Sources: []providers.Source{{Title: "Wiki", URL: "https://example.org"}},
	}

	reply := d.engine.Process(ctx, "", "anything known regarding sea cucumbers")
	if reply.Text != "Sea cucumbers are echinoderms." {
		t.Errorf("fallback reply = %q", reply.Text)
	}
	if len(reply.Sources) != 1 {
		t.Errorf("fallback should carry sources, got %d", len(reply.Sources))
	}
}

func TestProcess_FallbackUnavailableApologizes(t *testing.T) {
	d := newTestEngine(t)
	reply := d.engine.Process(context.Background(), "", "anything known regarding sea cucumbers")
	if !strings.Contains(reply.Text, "can't answer that right now") {
		t.Errorf("unavailable assistant reply = %q", reply.Text)
	}
}

func TestProcess_EvaluativeQuestion(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()
	d.products.results = []connectors.Product{{Title: "TrailRunner 2", Rating: 4.6}}
	d.assistant.err = nil
	d.assistant.answer = providers.Answer{Content: "Yes, it grips well on wet rock."}

	reply := d.engine.Process(ctx, "", "is the TrailRunner 2 any good for hiking?")
	if reply.Text != "Yes, it grips well on wet rock." {
		t.Errorf("evaluative reply = %q", reply.Text)
	}
	if !strings.Contains(d.assistant.lastPrompt, "TrailRunner 2") || !strings.Contains(d.assistant.lastPrompt, "hiking") {
		t.Errorf("assistant prompt should name product and use, got %q", d.assistant.lastPrompt)
	}
}

func TestProcess_HistoryRecordsBothSides(t *testing.T) {
	d := newTestEngine(t)
	ctx := context.Background()

	reply := d.engine.Process(ctx, "", "hello")
	sess, err := d.store.Load(ctx, reply.SessionID)
	if err != nil || sess == nil {
		t.Fatalf("session not persisted: %v", err)
	}
	turns := sess.History(0)
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "bot" {
		t.Fatalf("history = %+v", turns)
	}
}

// roundTripStore persists sessions as JSON the way the Redis driver does:
// every Load decodes a fresh object, so nothing is shared between turns
// except what Save wrote.
type roundTripStore struct {
	mu   sync.Mutex
	rows map[string][]byte
}

func (s *roundTripStore) Load(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	raw, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *roundTripStore) Save(_ context.Context, sess *session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rows[sess.ID()] = raw
	s.mu.Unlock()
	return nil
}

func (s *roundTripStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.rows, id)
	s.mu.Unlock()
	return nil
}

func (s *roundTripStore) Sweep(_ context.Context, _ time.Duration) ([]string, error) {
	return nil, nil
}

func (s *roundTripStore) Close() error { return nil }

func TestProcess_ConcurrentTurnsKeepHistoryWithSerializingStore(t *testing.T) {
	store := &roundTripStore{rows: make(map[string][]byte)}
	sessions := session.NewManager(store, 30*time.Minute)
	assistant := &fakeAssistant{err: errors.New("not configured")}
	resolver := intent.NewResolver(intent.NewLexicalScorer(), 0.5, assistant)
	engine := NewEngine(sessions, resolver, &fakeOrders{}, &fakeProducts{}, &fakeAnalytics{}, assistant)
	ctx := context.Background()

	first := engine.Process(ctx, "", "hello")
	id := first.SessionID

	const turns = 16
	done := make(chan struct{})
	for i := 0; i < turns; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			reply := engine.Process(ctx, id, "hello")
			if reply.SessionID != id {
				t.Errorf("turn switched session: %q", reply.SessionID)
			}
		}()
	}
	for i := 0; i < turns; i++ {
		<-done
	}

	sess, err := store.Load(ctx, id)
	if err != nil || sess == nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if got, want := len(sess.History(0)), 2*(turns+1); got != want {
		t.Errorf("history after %d concurrent turns: got %d entries, want %d (turns lost)", turns, got, want)
	}
}

func fptr(v float64) *float64 { return &v }
