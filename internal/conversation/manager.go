/*
 * This file is part of Guest List Planner (https://github.com/atssj/prj-guest-list-planner).
 * Copyright (C) 2025 Guest List Planner contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package conversation

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/atssj/prj-guest-list-planner/internal/security"
)

// ErrConversationNotFound is returned for unknown conversation IDs.
var ErrConversationNotFound = errors.New("conversation not found")

// Manager is the registry of live guest-entry conversations. Every machine
// it creates shares the same extractor and confirmed-guest handoff.
type Manager struct {
	mu          sync.Mutex
	extractor   Extractor
	onConfirmed ConfirmedHandler
	sessions    map[string]*Machine
}

// NewManager creates an empty registry.
func NewManager(extractor Extractor, onConfirmed ConfirmedHandler) *Manager {
	return &Manager{
		extractor:   extractor,
		onConfirmed: onConfirmed,
		sessions:    make(map[string]*Machine),
	}
}

// Start creates a new conversation and returns its ID and opening state.
func (mgr *Manager) Start() (string, TurnOutcome) {
	id := newConversationID()
	machine := NewMachine(mgr.extractor, mgr.onConfirmed)

	mgr.mu.Lock()
	mgr.sessions[id] = machine
	mgr.mu.Unlock()

	return id, machine.Snapshot()
}

// Get looks up a live conversation by ID.
func (mgr *Manager) Get(id string) (*Machine, error) {
	if err := security.ValidateConversationID(id); err != nil {
		return nil, err
	}

	mgr.mu.Lock()
	machine, ok := mgr.sessions[id]
	mgr.mu.Unlock()

	if !ok {
		return nil, ErrConversationNotFound
	}
	return machine, nil
}

// Remove drops a conversation from the registry. Removing an unknown ID is
// a no-op.
func (mgr *Manager) Remove(id string) {
	mgr.mu.Lock()
	delete(mgr.sessions, id)
	mgr.mu.Unlock()
}

// Count returns the number of live conversations.
func (mgr *Manager) Count() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.sessions)
}

// newConversationID generates a random identifier without external
// dependencies, falling back to a timestamp when randomness fails.
func newConversationID() string {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return fmt.Sprintf("conv-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("conv-%x", b)
}
