// internal/intake/store/store.go

// Package store owns the mutable state of one wizard session: the current
// draft and the step index. Mutations go through the Store so the draft itself
// stays a value passed to pure functions.
package store

import (
	"errors"
	"fmt"

	"transaction-intake/internal/intake/draft"
)

var ErrCannotRemoveLastClient = errors.New("CANNOT_REMOVE_LAST_CLIENT")

// Store holds the in-progress draft for exactly one session. It is not safe
// for concurrent use; a session is owned by a single caller at a time.
type Store struct {
	draft draft.TransactionDraft
	step  int
	dirty bool
}

func New() *Store {
	return &Store{
		draft: draft.New(),
		step:  1,
	}
}

// FromState rebuilds a store from persisted session state.
func FromState(d draft.TransactionDraft, step int) *Store {
	s := &Store{draft: d, step: step}
	s.step = clampStep(step)
	return s
}

func (s *Store) Draft() draft.TransactionDraft {
	return s.draft
}

func (s *Store) Step() int {
	return s.step
}

func (s *Store) Dirty() bool {
	return s.dirty
}

// SetField merges a single field update into the draft and marks it dirty.
func (s *Store) SetField(path string, value interface{}) error {
	next, err := s.draft.WithField(path, value)
	if err != nil {
		return fmt.Errorf("set field: %w", err)
	}
	s.draft = next
	s.dirty = true
	return nil
}

// AddClient appends a new client. The type is inferred from the agent role;
// dual agents pass an explicit type, defaulting to BUYER when they don't.
func (s *Store) AddClient(explicitType draft.ClientType) draft.Client {
	clientType, inferred := s.draft.AgentRole.InferredClientType()
	if !inferred && explicitType != "" {
		clientType = explicitType
	}

	c := draft.NewClient(clientType)
	next := s.draft.Clone()
	next.Clients = append(next.Clients, c)
	s.draft = next
	s.dirty = true
	return c
}

// RemoveClient removes the client with the given id. Removing the last
// remaining client is disallowed.
func (s *Store) RemoveClient(id string) error {
	idx := s.draft.ClientIndex(id)
	if idx < 0 {
		return fmt.Errorf("unknown client id: %s", id)
	}
	if len(s.draft.Clients) == 1 {
		return ErrCannotRemoveLastClient
	}

	next := s.draft.Clone()
	next.Clients = append(next.Clients[:idx], next.Clients[idx+1:]...)
	s.draft = next
	s.dirty = true
	return nil
}

// GoToStep clamps n into the wizard range and moves there. Navigation never
// validates; step completeness is advisory until final submission.
func (s *Store) GoToStep(n int) int {
	s.step = clampStep(n)
	return s.step
}

// Reset discards the draft and returns to step 1. Irreversible.
func (s *Store) Reset() {
	s.draft = draft.New()
	s.step = 1
	s.dirty = false
}

func clampStep(n int) int {
	if n < 1 {
		return 1
	}
	if n > draft.TotalSteps {
		return draft.TotalSteps
	}
	return n
}
