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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/atssj/prj-guest-list-planner/internal/api"
	"github.com/atssj/prj-guest-list-planner/internal/config"
	"github.com/atssj/prj-guest-list-planner/internal/conversation"
	"github.com/atssj/prj-guest-list-planner/internal/events"
	"github.com/atssj/prj-guest-list-planner/internal/extract"
	"github.com/atssj/prj-guest-list-planner/internal/guests"
	"github.com/atssj/prj-guest-list-planner/internal/logging"
	"github.com/atssj/prj-guest-list-planner/internal/messaging"
	"github.com/atssj/prj-guest-list-planner/internal/storage"
	"github.com/atssj/prj-guest-list-planner/internal/voice"
)

// Server wires the conversation core to its HTTP surface, storage, and
// messaging.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	database    *storage.Database
	turnEvents  *storage.TurnEventsStore
	guestsStore *storage.GuestsStore
	nats        *messaging.NATSService
	extractor   *extract.GeminiExtractor
	manager     *conversation.Manager
	gateway     *voice.Gateway

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a fully wired server. The NATS connection is optional: a
// failed connect is logged and event publication is skipped.
func New(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	database, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	geminiExtractor, err := extract.NewGeminiExtractor(ctx, cfg.Extractor.GeminiAPIKey, cfg.Extractor.GeminiModel, cfg.Extractor.Timeout)
	if err != nil {
		_ = database.Close()
		cancel()
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	var turnExtractor conversation.Extractor = geminiExtractor
	if cfg.Extractor.ReflexFirst {
		turnExtractor = extract.NewCascadeExtractor(geminiExtractor)
	}

	s := &Server{
		cfg:         cfg,
		mux:         http.NewServeMux(),
		database:    database,
		turnEvents:  storage.NewTurnEventsStore(database),
		guestsStore: storage.NewGuestsStore(database),
		extractor:   geminiExtractor,
		ctx:         ctx,
		cancel:      cancel,
	}

	s.nats = messaging.NewNATSServiceWithConfig(cfg.NATS.URL, cfg.NATS.MaxReconnect, cfg.NATS.ReconnectWait)
	if err := s.nats.Connect(); err != nil {
		logging.LogWarn("NATS unavailable, continuing without event publication")
		s.nats = nil
	}

	s.manager = conversation.NewManager(turnExtractor, s.handleConfirmedGuest)
	s.gateway = voice.NewGateway(s.manager, s.recordTurn)

	s.server = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()

	return s, nil
}

// routes sets up HTTP routing
func (s *Server) routes() {
	conversations := api.NewConversationsHandler(s.manager, api.TurnObserver(s.recordTurn))
	guestsHandler := api.NewGuestsHandler(s.guestsStore)
	turnEventsHandler := api.NewTurnEventsHandler(s.turnEvents)
	parseHandler := api.NewParseHandler(s.extractor)

	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/voice", s.gateway.HandleWebSocket)

	s.mux.HandleFunc("/api/conversations", conversations.HandleConversations)
	s.mux.HandleFunc("/api/conversations/", conversations.HandleConversationByID)

	s.mux.HandleFunc("/api/guests", guestsHandler.HandleGuests)
	s.mux.HandleFunc("/api/guests/summary", guestsHandler.HandleGuestsSummary)
	s.mux.HandleFunc("/api/guests/", guestsHandler.HandleGuestByID)

	s.mux.HandleFunc("/api/turn-events", turnEventsHandler.HandleTurnEvents)
	s.mux.HandleFunc("/api/turn-events/", turnEventsHandler.HandleTurnEventByID)

	s.mux.HandleFunc("/api/parse-guest", parseHandler.HandleParseGuest)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"voice_endpoint", "/voice",
		"conversations_endpoint", "/api/conversations",
		"guests_endpoint", "/api/guests")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 Guest List Planner starting",
		"http_addr", s.server.Addr,
		"gemini_model", s.cfg.Extractor.GeminiModel,
		"reflex_first", s.cfg.Extractor.ReflexFirst)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server and its backends
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down Guest List Planner")

	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.nats != nil {
		s.nats.Close()
	}
	if err := s.extractor.Close(); err != nil {
		logging.LogError(err, "Failed to close extractor client")
	}
	if err := s.database.Close(); err != nil {
		logging.LogError(err, "Failed to close database")
	}

	logging.Sugar.Infow("✅ Guest List Planner shut down successfully")
	return nil
}

// recordTurn persists one processed turn and publishes it. Failures here
// never affect the conversation itself.
func (s *Server) recordTurn(conversationID, utterance string, outcome conversation.TurnOutcome, turnErr error) {
	event := events.NewTurnEvent(conversationID, outcome.Stage, utterance)
	event.SetOutcome(outcome)
	if turnErr != nil {
		event.SetError(turnErr)
	}

	if err := s.turnEvents.Insert(event); err != nil {
		logging.LogError(err, "Failed to store turn event")
	}

	if s.nats != nil {
		err := s.nats.PublishTurnProcessed(&messaging.TurnProcessedEvent{
			ConversationID: conversationID,
			Stage:          event.Stage,
			NextStage:      event.NextStage,
			ParsingError:   outcome.ParsingError,
			Repaired:       outcome.Repaired,
			Timestamp:      time.Now().UnixMilli(),
		})
		if err != nil {
			logging.LogError(err, "Failed to publish turn event")
		} else {
			logging.LogNATSEvent(messaging.SubjectConversationTurns, "published")
		}
	}
}

// handleConfirmedGuest is the form-synchronizer boundary: confirmed drafts
// become guest list entries and a NATS announcement.
func (s *Server) handleConfirmedGuest(confirmed conversation.ConfirmedGuest) {
	guest := guests.NewGuest(confirmed.FamilyName, confirmed.Adults, confirmed.Children)

	if err := s.guestsStore.Insert(guest); err != nil {
		logging.LogError(err, "Failed to store confirmed guest")
		return
	}

	if s.nats != nil {
		err := s.nats.PublishGuestConfirmed(&messaging.GuestConfirmedEvent{
			GuestID:    guest.ID,
			FamilyName: guest.FamilyName,
			Adults:     guest.Adults,
			Children:   guest.Children,
			Timestamp:  time.Now().UnixMilli(),
		})
		if err != nil {
			logging.LogError(err, "Failed to publish confirmed guest")
		}
	}
}

// handleHealth provides system health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now(),
		"conversations":  s.manager.Count(),
		"nats_connected": s.nats != nil && s.nats.IsConnected(),
	}

	if err := s.database.Ping(); err != nil {
		health["status"] = "degraded"
		health["database_error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}
