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

// Package guests holds the confirmed guest list model: one entry per family
// party, with optional meal preferences filled in after confirmation.
package guests

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

// Guest is one confirmed party on the guest list.
type Guest struct {
	ID              string           `json:"id" db:"id"`
	FamilyName      string           `json:"familyName" db:"family_name"`
	Adults          int              `json:"adults" db:"adults"`
	Children        int              `json:"children" db:"children"`
	MealPreferences *MealPreferences `json:"mealPreferences,omitempty"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
}

// MealPreferences counts meals by kind for one party. OtherName labels a
// custom meal kind (e.g. "Jain"); OtherCount is its count.
type MealPreferences struct {
	Veg        int    `json:"veg" db:"veg"`
	NonVeg     int    `json:"nonVeg" db:"non_veg"`
	ChildMeal  int    `json:"childMeal" db:"child_meal"`
	OtherName  string `json:"otherName,omitempty" db:"other_name"`
	OtherCount int    `json:"otherCount" db:"other_count"`
}

// Summary aggregates the whole guest list.
type Summary struct {
	Families      int `json:"families"`
	Adults        int `json:"adults"`
	Children      int `json:"children"`
	TotalGuests   int `json:"totalGuests"`
	VegMeals      int `json:"vegMeals"`
	NonVegMeals   int `json:"nonVegMeals"`
	ChildMeals    int `json:"childMeals"`
	OtherMeals    int `json:"otherMeals"`
	WithMealPrefs int `json:"withMealPrefs"`
}

// NewGuest creates a guest entry with a generated ID and current timestamp.
func NewGuest(familyName string, adults, children int) *Guest {
	return &Guest{
		ID:         generateGuestID(),
		FamilyName: strings.TrimSpace(familyName),
		Adults:     adults,
		Children:   children,
		CreatedAt:  time.Now(),
	}
}

// generateGuestID generates a simple UUID without external dependencies
func generateGuestID() string {
	b := make([]byte, 16)
	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		// Fallback to timestamp-based ID if random fails
		return fmt.Sprintf("guest-%d", time.Now().UnixNano())
	}

	// Set version (4) and variant bits
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// PartySize returns the number of people in the party.
func (g *Guest) PartySize() int {
	return g.Adults + g.Children
}

// IsValid performs basic validation on the guest entry.
func (g *Guest) IsValid() error {
	if g.ID == "" {
		return fmt.Errorf("ID is required")
	}

	if strings.TrimSpace(g.FamilyName) == "" {
		return fmt.Errorf("family name is required")
	}

	if g.Adults < 0 {
		return fmt.Errorf("adults must be non-negative: %d", g.Adults)
	}

	if g.Children < 0 {
		return fmt.Errorf("children must be non-negative: %d", g.Children)
	}

	if g.Adults+g.Children == 0 {
		return fmt.Errorf("party must have at least one person")
	}

	if g.MealPreferences != nil {
		if err := g.MealPreferences.IsValid(); err != nil {
			return err
		}
		if total := g.MealPreferences.Total(); total > g.PartySize() {
			return fmt.Errorf("meal count %d exceeds party size %d", total, g.PartySize())
		}
	}

	return nil
}

// Total returns the number of meals across all kinds.
func (mp *MealPreferences) Total() int {
	return mp.Veg + mp.NonVeg + mp.ChildMeal + mp.OtherCount
}

// IsValid checks meal preference counts.
func (mp *MealPreferences) IsValid() error {
	if mp.Veg < 0 || mp.NonVeg < 0 || mp.ChildMeal < 0 || mp.OtherCount < 0 {
		return fmt.Errorf("meal counts must be non-negative")
	}

	if mp.OtherCount > 0 && strings.TrimSpace(mp.OtherName) == "" {
		return fmt.Errorf("other meal count requires a name")
	}

	return nil
}

// String returns a human-readable representation of the guest entry.
func (g *Guest) String() string {
	return fmt.Sprintf("Guest{ID: %s, FamilyName: %q, Adults: %d, Children: %d}",
		g.ID, g.FamilyName, g.Adults, g.Children)
}

// Summarize computes aggregate totals over a guest list.
func Summarize(list []*Guest) Summary {
	var s Summary
	for _, g := range list {
		s.Families++
		s.Adults += g.Adults
		s.Children += g.Children
		if g.MealPreferences != nil {
			s.WithMealPrefs++
			s.VegMeals += g.MealPreferences.Veg
			s.NonVegMeals += g.MealPreferences.NonVeg
			s.ChildMeals += g.MealPreferences.ChildMeal
			s.OtherMeals += g.MealPreferences.OtherCount
		}
	}
	s.TotalGuests = s.Adults + s.Children
	return s
}
