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
	"errors"
	"testing"

	"github.com/atssj/prj-guest-list-planner/internal/security"
)

func TestManagerStartAndGet(t *testing.T) {
	mgr := NewManager(fixedResult(&Result{}), nil)

	id, out := mgr.Start()
	if id == "" {
		t.Fatal("expected a non-empty conversation ID")
	}
	if out.Stage != StageFamilyName || out.Prompt != OpeningPrompt {
		t.Errorf("unexpected opening state: %+v", out)
	}

	machine, err := mgr.Get(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if machine == nil {
		t.Fatal("expected a machine")
	}
	if mgr.Count() != 1 {
		t.Errorf("expected 1 live conversation, got %d", mgr.Count())
	}
}

func TestManagerGetValidatesIDs(t *testing.T) {
	mgr := NewManager(fixedResult(&Result{}), nil)

	if _, err := mgr.Get("../../etc/passwd"); !errors.Is(err, security.ErrInvalidConversationID) {
		t.Errorf("expected ErrInvalidConversationID, got %v", err)
	}
	if _, err := mgr.Get("conv-unknown"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestManagerRemove(t *testing.T) {
	mgr := NewManager(fixedResult(&Result{}), nil)

	id, _ := mgr.Start()
	mgr.Remove(id)
	if _, err := mgr.Get(id); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound after removal, got %v", err)
	}

	// Removing twice is a no-op.
	mgr.Remove(id)
	if mgr.Count() != 0 {
		t.Errorf("expected 0 live conversations, got %d", mgr.Count())
	}
}

func TestManagerIDsAreUnique(t *testing.T) {
	mgr := NewManager(fixedResult(&Result{}), nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := mgr.Start()
		if seen[id] {
			t.Fatalf("duplicate conversation ID: %s", id)
		}
		seen[id] = true
	}
}
