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
	"time"

	"github.com/atssj/prj-guest-list-planner/internal/events"
)

// TurnEventsStore handles database operations for conversation turn events
type TurnEventsStore struct {
	db *Database
}

// NewTurnEventsStore creates a new turn events store
func NewTurnEventsStore(db *Database) *TurnEventsStore {
	return &TurnEventsStore{db: db}
}

// Insert stores a new turn event in the database
func (s *TurnEventsStore) Insert(event *events.TurnEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid turn event: %w", err)
	}

	draftJSON, err := event.DraftJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize draft: %w", err)
	}

	query := `
		INSERT INTO turn_events (
			uuid, conversation_id, timestamp,
			stage, utterance, next_stage, draft,
			parsing_error, repaired, prompt,
			processing_time_ms, success, error_message
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)`

	_, err = s.db.DB().Exec(query,
		event.UUID, event.ConversationID, event.Timestamp,
		event.Stage, event.Utterance, event.NextStage, draftJSON,
		event.ParsingError, event.Repaired, event.Prompt,
		event.ProcessingTime, event.Success, event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert turn event: %w", err)
	}

	return nil
}

// GetByUUID retrieves a turn event by its UUID
func (s *TurnEventsStore) GetByUUID(uuid string) (*events.TurnEvent, error) {
	query := `
		SELECT uuid, conversation_id, timestamp,
			   stage, utterance, next_stage, draft,
			   parsing_error, repaired, prompt,
			   processing_time_ms, success, error_message
		FROM turn_events
		WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanTurnEvent(row)
}

// List retrieves turn events with pagination and filtering
func (s *TurnEventsStore) List(options ListOptions) ([]*events.TurnEvent, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query turn events: %w", err)
	}
	defer rows.Close()

	var eventsList []*events.TurnEvent
	for rows.Next() {
		event, err := s.scanTurnEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn event: %w", err)
		}
		eventsList = append(eventsList, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turn events: %w", err)
	}

	return eventsList, nil
}

// Count returns the total number of turn events matching the filter
func (s *TurnEventsStore) Count(options ListOptions) (int64, error) {
	// Build count query using same filters
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	err := s.db.DB().QueryRow(countQuery, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count turn events: %w", err)
	}

	return count, nil
}

// GetByConversation retrieves all turns of one conversation in order
func (s *TurnEventsStore) GetByConversation(conversationID string) ([]*events.TurnEvent, error) {
	options := ListOptions{
		ConversationID: conversationID,
		SortOrder:      "ASC",
	}
	return s.List(options)
}

// Delete removes a turn event by UUID
func (s *TurnEventsStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM turn_events WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete turn event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("turn event not found: %s", uuid)
	}

	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	ConversationID string
	Stage          string
	Success        *bool // nil = all, true = success only, false = errors only
	StartTime      *time.Time
	EndTime        *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "processing_time_ms"
	SortOrder string // "ASC", "DESC"
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *TurnEventsStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := `
		SELECT uuid, conversation_id, timestamp,
			   stage, utterance, next_stage, draft,
			   parsing_error, repaired, prompt,
			   processing_time_ms, success, error_message
		FROM turn_events WHERE 1=1`

	var args []interface{}

	// Apply filters
	if options.ConversationID != "" {
		query += " AND conversation_id = ?"
		args = append(args, options.ConversationID)
	}

	if options.Stage != "" {
		query += " AND stage = ?"
		args = append(args, options.Stage)
	}

	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}

	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime)
	}

	// Apply sorting
	sortBy := options.SortBy
	if sortBy == "" {
		sortBy = "timestamp"
	}

	sortOrder := options.SortOrder
	if sortOrder == "" {
		sortOrder = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	// Apply pagination
	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanTurnEvent scans a database row into a TurnEvent struct
func (s *TurnEventsStore) scanTurnEvent(scanner interface{}) (*events.TurnEvent, error) {
	var event events.TurnEvent
	var draftJSON string

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
		&event.UUID, &event.ConversationID, &event.Timestamp,
		&event.Stage, &event.Utterance, &event.NextStage, &draftJSON,
		&event.ParsingError, &event.Repaired, &event.Prompt,
		&event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("turn event not found")
		}
		return nil, err
	}

	if err := event.SetDraftFromJSON(draftJSON); err != nil {
		return nil, fmt.Errorf("failed to parse draft JSON: %w", err)
	}

	return &event, nil
}
