package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
)

// memStore is an in-memory ConversationStore + PendingOrderStore
type memStore struct {
	mu      sync.Mutex
	states  map[string]core.ConversationState
	orders  map[string]core.OrderDraft
	puts    int
	removes int

	putErr    error
	removeErr error
}

func newMemStore() *memStore {
	return &memStore{
		states: make(map[string]core.ConversationState),
		orders: make(map[string]core.OrderDraft),
	}
}

func (m *memStore) GetState(_ context.Context, sender string) (core.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[sender]; ok {
		return s, nil
	}
	return core.IdleState(), nil
}

func (m *memStore) SetState(_ context.Context, sender string, state core.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.IsIdle() {
		delete(m.states, sender)
		return nil
	}
	m.states[sender] = state
	return nil
}

func (m *memStore) ClearState(ctx context.Context, sender string) error {
	return m.SetState(ctx, sender, core.IdleState())
}

func (m *memStore) PutOrder(_ context.Context, draft *core.OrderDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.orders[draft.ID] = *draft
	return nil
}

func (m *memStore) GetOrder(_ context.Context, orderID string) (*core.OrderDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.orders[orderID]
	if !ok {
		return nil, core.ErrOrderNotFound
	}
	return &d, nil
}

func (m *memStore) RemoveOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removes++
	delete(m.orders, orderID)
	return nil
}

func (m *memStore) state(sender string) core.ConversationState {
	s, _ := m.GetState(context.Background(), sender)
	return s
}

// committingStore adds DraftCommitter to memStore
type committingStore struct {
	*memStore
	commits int
}

func (c *committingStore) CommitDraft(ctx context.Context, draft *core.OrderDraft) error {
	c.commits++
	if err := c.PutOrder(ctx, draft); err != nil {
		return err
	}
	return c.ClearState(ctx, draft.Sender)
}

type sentMessage struct {
	Kind    string // text, image, buttons, list
	To      string
	Text    string
	Buttons []core.Button
	List    core.ListPrompt
}

// fakeWhatsApp records outbound replies
type fakeWhatsApp struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeWhatsApp) record(m sentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

func (f *fakeWhatsApp) SendText(_ context.Context, to string, message string) error {
	return f.record(sentMessage{Kind: "text", To: to, Text: message})
}

func (f *fakeWhatsApp) SendImage(_ context.Context, to string, _ string, caption string) error {
	return f.record(sentMessage{Kind: "image", To: to, Text: caption})
}

func (f *fakeWhatsApp) SendMenuButtons(_ context.Context, to string, text string, _ string, buttons []core.Button) error {
	return f.record(sentMessage{Kind: "buttons", To: to, Text: text, Buttons: buttons})
}

func (f *fakeWhatsApp) SendList(_ context.Context, to string, list core.ListPrompt) error {
	return f.record(sentMessage{Kind: "list", To: to, Text: list.Text, List: list})
}

func (f *fakeWhatsApp) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeWhatsApp) last() sentMessage {
	msgs := f.messages()
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

// fakePayment returns a fixed redirect URL and replays a canned event
type fakePayment struct {
	created   []string
	createErr error
	event     *core.PaymentEvent
	parseErr  error
}

func (f *fakePayment) CreateTransaction(_ context.Context, draft *core.OrderDraft) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, draft.ID)
	return "https://pay.example/" + draft.ID, nil
}

func (f *fakePayment) ParseNotification(_ context.Context, _ []byte) (*core.PaymentEvent, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

// fakeLedger is an in-memory LedgerRepository
type fakeLedger struct {
	mu        sync.Mutex
	entries   map[string]*core.LedgerEntry
	records   int
	recordErr error
	now       time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]*core.LedgerEntry), now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeLedger) Record(_ context.Context, entry *core.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records++
	if f.recordErr != nil {
		return f.recordErr
	}
	cp := *entry
	f.entries[entry.OrderID] = &cp
	return nil
}

func (f *fakeLedger) GetByOrderID(_ context.Context, orderID string) (*core.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[orderID]
	if !ok {
		return nil, core.ErrLedgerEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeLedger) ListByStatus(_ context.Context, status string, limit int) ([]*core.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*core.LedgerEntry
	for _, e := range f.entries {
		if e.Status == status && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLedger) StartProcessing(_ context.Context, orderID string) (*core.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[orderID]
	if !ok {
		return nil, core.ErrLedgerEntryNotFound
	}
	if e.Status != core.LedgerStatusQueued {
		cp := *e
		return &cp, core.ErrOrderAlreadyStarted
	}
	started := f.now
	e.Status = core.LedgerStatusInProgress
	e.StartedAt = &started
	cp := *e
	return &cp, nil
}

type fakeAlerter struct {
	alerts []string
	err    error
}

func (f *fakeAlerter) OrderReceived(_ context.Context, draft *core.OrderDraft) error {
	f.alerts = append(f.alerts, draft.ID)
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(eventType events.EventType, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events.Event{Type: eventType, Data: data})
}

func (f *fakePublisher) types() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

// seqIDs hands out JOKI-<n>-0000000<n>
type seqIDs struct {
	n   int
	err error
}

func (s *seqIDs) NewID() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.n++
	return fmt.Sprintf("JOKI-%d-%08X", s.n, s.n), nil
}

var errBoom = errors.New("boom")
