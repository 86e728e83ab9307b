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

package storage

import (
	"path/filepath"
	"testing"

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
	"github.com/atssj/prj-guest-list-planner/internal/events"
	"github.com/atssj/prj-guest-list-planner/internal/guests"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func TestDatabaseMigrateAndPing(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestTurnEventsStoreInsertAndGet(t *testing.T) {
	db := newTestDatabase(t)
	store := NewTurnEventsStore(db)

	event := events.NewTurnEvent("conv-1", conversation.StageAdults, "two adults")
	event.SetOutcome(conversation.TurnOutcome{
		Stage:  conversation.StageChildren,
		Draft:  conversation.Draft{},
		Prompt: "And how many children?",
	})

	if err := store.Insert(event); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.GetByUUID(event.UUID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ConversationID != "conv-1" || got.Stage != string(conversation.StageAdults) {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.NextStage != string(conversation.StageChildren) {
		t.Errorf("next stage = %q", got.NextStage)
	}
	if got.Prompt != "And how many children?" {
		t.Errorf("prompt = %q", got.Prompt)
	}
}

func TestTurnEventsStoreInsertRejectsInvalid(t *testing.T) {
	db := newTestDatabase(t)
	store := NewTurnEventsStore(db)

	event := events.NewTurnEvent("", conversation.StageAdults, "two")
	if err := store.Insert(event); err == nil {
		t.Error("expected validation error for missing conversation ID")
	}
}

func TestTurnEventsStoreListAndCount(t *testing.T) {
	db := newTestDatabase(t)
	store := NewTurnEventsStore(db)

	for _, conv := range []string{"conv-a", "conv-a", "conv-b"} {
		event := events.NewTurnEvent(conv, conversation.StageFamilyName, "hello")
		event.SetOutcome(conversation.TurnOutcome{
			Stage:  conversation.StageAdults,
			Prompt: "How many adults?",
		})
		if err := store.Insert(event); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	list, err := store.List(ListOptions{ConversationID: "conv-a"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d events, want 2", len(list))
	}

	count, err := store.Count(ListOptions{ConversationID: "conv-b"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got count %d, want 1", count)
	}

	all, err := store.List(ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("limit ignored, got %d events", len(all))
	}
}

func TestTurnEventsStoreDelete(t *testing.T) {
	db := newTestDatabase(t)
	store := NewTurnEventsStore(db)

	event := events.NewTurnEvent("conv-1", conversation.StageFamilyName, "hi")
	event.SetOutcome(conversation.TurnOutcome{Stage: conversation.StageFamilyName, Prompt: "again?"})
	if err := store.Insert(event); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := store.Delete(event.UUID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(event.UUID); err == nil {
		t.Error("expected error deleting a missing event")
	}
}

func TestGuestsStoreRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	store := NewGuestsStore(db)

	guest := guests.NewGuest("Patel", 2, 1)
	if err := store.Insert(guest); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.GetByID(guest.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.FamilyName != "Patel" || got.Adults != 2 || got.Children != 1 {
		t.Errorf("unexpected guest: %+v", got)
	}
	if got.MealPreferences != nil {
		t.Error("meal preferences should be absent until set")
	}
}

func TestGuestsStoreMealPreferences(t *testing.T) {
	db := newTestDatabase(t)
	store := NewGuestsStore(db)

	guest := guests.NewGuest("Shah", 4, 2)
	if err := store.Insert(guest); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	mp := &guests.MealPreferences{Veg: 3, NonVeg: 1, ChildMeal: 1, OtherName: "Jain", OtherCount: 1}
	if err := store.UpdateMealPreferences(guest.ID, mp); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.GetByID(guest.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.MealPreferences == nil {
		t.Fatal("expected meal preferences after update")
	}
	if got.MealPreferences.Veg != 3 || got.MealPreferences.OtherName != "Jain" {
		t.Errorf("unexpected preferences: %+v", got.MealPreferences)
	}

	if err := store.UpdateMealPreferences("missing", mp); err == nil {
		t.Error("expected error updating a missing guest")
	}
}

func TestGuestsStoreListAndSummary(t *testing.T) {
	db := newTestDatabase(t)
	store := NewGuestsStore(db)

	for _, g := range []*guests.Guest{
		guests.NewGuest("Smith", 2, 1),
		guests.NewGuest("Patel", 3, 0),
	} {
		if err := store.Insert(g); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d guests, want 2", len(list))
	}

	summary, err := store.Summary()
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Families != 2 || summary.Adults != 5 || summary.Children != 1 || summary.TotalGuests != 6 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestGuestsStoreDelete(t *testing.T) {
	db := newTestDatabase(t)
	store := NewGuestsStore(db)

	guest := guests.NewGuest("Lee", 1, 0)
	if err := store.Insert(guest); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := store.Delete(guest.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetByID(guest.ID); err == nil {
		t.Error("expected error getting a deleted guest")
	}
	if err := store.Delete(guest.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}
