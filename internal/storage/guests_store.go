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
	"database/sql"
	"fmt"
	"log"

	"github.com/atssj/prj-guest-list-planner/internal/guests"
	"github.com/atssj/prj-guest-list-planner/internal/security"
)

// GuestsStore handles database operations for the confirmed guest list
type GuestsStore struct {
	db *Database
}

// NewGuestsStore creates a new guests store
func NewGuestsStore(db *Database) *GuestsStore {
	return &GuestsStore{db: db}
}

// Insert stores a new guest entry
func (s *GuestsStore) Insert(guest *guests.Guest) error {
	if err := guest.IsValid(); err != nil {
		return fmt.Errorf("invalid guest: %w", err)
	}

	mp := guest.MealPreferences
	hasMealPrefs := mp != nil
	if mp == nil {
		mp = &guests.MealPreferences{}
	}

	query := `
		INSERT INTO guests (
			id, family_name, adults, children,
			meal_veg, meal_non_veg, meal_child, meal_other_name, meal_other_count,
			has_meal_prefs, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().Exec(query,
		guest.ID, guest.FamilyName, guest.Adults, guest.Children,
		mp.Veg, mp.NonVeg, mp.ChildMeal, mp.OtherName, mp.OtherCount,
		hasMealPrefs, guest.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert guest: %w", err)
	}

	log.Printf("📝 Stored guest: %s (%s, %d adults, %d children)",
		guest.ID, security.SanitizeLogInput(guest.FamilyName), guest.Adults, guest.Children)
	return nil
}

// GetByID retrieves a guest entry by its ID
func (s *GuestsStore) GetByID(id string) (*guests.Guest, error) {
	query := `
		SELECT id, family_name, adults, children,
			   meal_veg, meal_non_veg, meal_child, meal_other_name, meal_other_count,
			   has_meal_prefs, created_at
		FROM guests
		WHERE id = ?`

	row := s.db.DB().QueryRow(query, id)
	return s.scanGuest(row)
}

// List retrieves the guest list ordered by creation time
func (s *GuestsStore) List() ([]*guests.Guest, error) {
	query := `
		SELECT id, family_name, adults, children,
			   meal_veg, meal_non_veg, meal_child, meal_other_name, meal_other_count,
			   has_meal_prefs, created_at
		FROM guests
		ORDER BY created_at ASC`

	rows, err := s.db.DB().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var list []*guests.Guest
	for rows.Next() {
		guest, err := s.scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		list = append(list, guest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guests: %w", err)
	}

	return list, nil
}

// UpdateMealPreferences replaces the meal preferences of an existing guest
func (s *GuestsStore) UpdateMealPreferences(id string, mp *guests.MealPreferences) error {
	if mp == nil {
		return fmt.Errorf("meal preferences are required")
	}
	if err := mp.IsValid(); err != nil {
		return fmt.Errorf("invalid meal preferences: %w", err)
	}

	query := `
		UPDATE guests
		SET meal_veg = ?, meal_non_veg = ?, meal_child = ?,
			meal_other_name = ?, meal_other_count = ?, has_meal_prefs = 1
		WHERE id = ?`

	result, err := s.db.DB().Exec(query,
		mp.Veg, mp.NonVeg, mp.ChildMeal, mp.OtherName, mp.OtherCount, id)
	if err != nil {
		return fmt.Errorf("failed to update meal preferences: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("guest not found: %s", id)
	}

	return nil
}

// Delete removes a guest entry by ID
func (s *GuestsStore) Delete(id string) error {
	result, err := s.db.DB().Exec("DELETE FROM guests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("guest not found: %s", id)
	}

	log.Printf("🗑️  Deleted guest: %s", id)
	return nil
}

// Summary computes aggregate totals over the stored guest list
func (s *GuestsStore) Summary() (guests.Summary, error) {
	list, err := s.List()
	if err != nil {
		return guests.Summary{}, err
	}
	return guests.Summarize(list), nil
}

// scanGuest scans a database row into a Guest struct
func (s *GuestsStore) scanGuest(scanner interface{}) (*guests.Guest, error) {
	var guest guests.Guest
	var mp guests.MealPreferences
	var hasMealPrefs bool

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&guest.ID, &guest.FamilyName, &guest.Adults, &guest.Children,
		&mp.Veg, &mp.NonVeg, &mp.ChildMeal, &mp.OtherName, &mp.OtherCount,
		&hasMealPrefs, &guest.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("guest not found")
		}
		return nil, err
	}

	if hasMealPrefs {
		guest.MealPreferences = &mp
	}

	return &guest, nil
}
