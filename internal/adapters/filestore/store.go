package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
)

const (
	// StateFileName holds sender -> conversation state
	StateFileName = "user_state.json"
	// PendingFileName holds order id -> pending order draft
	PendingFileName = "pending_orders.json"
)

// Store implements ConversationStore, PendingOrderStore and DraftCommitter on two
// JSON documents. Every mutation rewrites the whole document through a temp file
// and a rename, so a crash leaves either the old or the new document.
type Store struct {
	mu          sync.Mutex
	statePath   string
	pendingPath string
	stateTTL    time.Duration
	now         func() time.Time

	states  map[string]core.ConversationState
	pending map[string]*core.OrderDraft
}

// Open loads (or creates) the documents under dir
func Open(dir string, stateTTL time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	s := &Store{
		statePath:   filepath.Join(dir, StateFileName),
		pendingPath: filepath.Join(dir, PendingFileName),
		stateTTL:    stateTTL,
		now:         time.Now,
		states:      make(map[string]core.ConversationState),
		pending:     make(map[string]*core.OrderDraft),
	}

	if err := readDocument(s.statePath, &s.states); err != nil {
		return nil, err
	}
	if err := readDocument(s.pendingPath, &s.pending); err != nil {
		return nil, err
	}
	return s, nil
}

// GetState returns the sender's state; missing or expired entries are Idle
func (s *Store) GetState(_ context.Context, sender string) (core.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[sender]
	if !ok || s.expired(state) {
		return core.IdleState(), nil
	}
	return state, nil
}

// SetState records the sender's state and flushes the state document
func (s *Store) SetState(_ context.Context, sender string, state core.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.states[sender]
	if state.IsIdle() {
		delete(s.states, sender)
	} else {
		state.UpdatedAt = s.now().UTC()
		s.states[sender] = state
	}

	if err := writeDocument(s.statePath, s.states); err != nil {
		restoreState(s.states, sender, prev, had)
		return err
	}
	return nil
}

// ClearState resets the sender to Idle
func (s *Store) ClearState(ctx context.Context, sender string) error {
	return s.SetState(ctx, sender, core.IdleState())
}

// PutOrder inserts or replaces a pending order
func (s *Store) PutOrder(_ context.Context, draft *core.OrderDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.pending[draft.ID]
	cp := *draft
	s.pending[draft.ID] = &cp

	if err := writeDocument(s.pendingPath, s.pending); err != nil {
		restoreOrder(s.pending, draft.ID, prev, had)
		return err
	}
	return nil
}

// GetOrder returns a copy of the pending order
func (s *Store) GetOrder(_ context.Context, orderID string) (*core.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.pending[orderID]
	if !ok {
		return nil, core.ErrOrderNotFound
	}
	cp := *draft
	return &cp, nil
}

// RemoveOrder deletes a pending order; removing an unknown id is a no-op
func (s *Store) RemoveOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.pending[orderID]
	if !had {
		return nil
	}
	delete(s.pending, orderID)

	if err := writeDocument(s.pendingPath, s.pending); err != nil {
		restoreOrder(s.pending, orderID, prev, had)
		return err
	}
	return nil
}

// CommitDraft persists the draft first, then clears the sender's state.
// If the state flush fails the draft stays: an orphaned draft is harmless,
// a cleared state without its draft would lose the order.
func (s *Store) CommitDraft(_ context.Context, draft *core.OrderDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevOrder, hadOrder := s.pending[draft.ID]
	cp := *draft
	s.pending[draft.ID] = &cp
	if err := writeDocument(s.pendingPath, s.pending); err != nil {
		restoreOrder(s.pending, draft.ID, prevOrder, hadOrder)
		return err
	}

	prevState, hadState := s.states[draft.Sender]
	if !hadState {
		return nil
	}
	delete(s.states, draft.Sender)
	if err := writeDocument(s.statePath, s.states); err != nil {
		restoreState(s.states, draft.Sender, prevState, hadState)
		return fmt.Errorf("order %s saved but state not cleared: %w", draft.ID, err)
	}
	return nil
}

func (s *Store) expired(state core.ConversationState) bool {
	if s.stateTTL <= 0 || state.UpdatedAt.IsZero() {
		return false
	}
	return s.now().Sub(state.UpdatedAt) > s.stateTTL
}

func restoreState(m map[string]core.ConversationState, key string, prev core.ConversationState, had bool) {
	if had {
		m[key] = prev
	} else {
		delete(m, key)
	}
}

func restoreOrder(m map[string]*core.OrderDraft, key string, prev *core.OrderDraft, had bool) {
	if had {
		m[key] = prev
	} else {
		delete(m, key)
	}
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
