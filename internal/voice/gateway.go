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

package voice

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
	"github.com/atssj/prj-guest-list-planner/internal/logging"
	"github.com/atssj/prj-guest-list-planner/internal/security"
)

const (
	readLimit    = 1 << 16
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// TurnObserver is notified after every processed turn, for audit storage
// and event publication. Observation failures never affect the turn.
type TurnObserver func(conversationID, utterance string, outcome conversation.TurnOutcome, err error)

// Gateway upgrades browser connections to WebSocket and relays transcripts
// into the conversation manager. One connection drives one conversation;
// turns on a connection are processed strictly in order.
type Gateway struct {
	manager  *conversation.Manager
	observer TurnObserver
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway over the given conversation manager.
func NewGateway(manager *conversation.Manager, observer TurnObserver) *Gateway {
	return &Gateway{
		manager:  manager,
		observer: observer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser app is served from the same origin in production;
			// cross-origin checks belong to the reverse proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket is the HTTP handler for the voice channel. An existing
// conversation can be resumed with ?conversation_id=...; otherwise a fresh
// one is started.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogError(err, "WebSocket upgrade failed")
		return
	}

	session := &socketSession{gateway: g, conn: conn}
	session.run(r.URL.Query().Get("conversation_id"))
}

// socketSession serializes all writes on one connection.
type socketSession struct {
	gateway *Gateway
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *socketSession) run(conversationID string) {
	defer func() {
		if err := s.conn.Close(); err != nil {
			logging.LogWarn("Failed to close WebSocket connection", zap.Error(err))
		}
	}()

	machine, conversationID, err := s.attach(conversationID)
	if err != nil {
		s.write(ServerMessage{Type: TypeError, Message: "unknown conversation"})
		return
	}

	logging.LogConversationTurn(conversationID, string(machine.Snapshot().Stage),
		zap.String("event", "socket_attached"))

	s.write(StateMessage(conversationID, machine.Snapshot()))

	stopPing := s.startPing()
	defer stopPing()

	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg ClientMessage
		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogWarn("WebSocket read error",
					zap.String("conversation_id", conversationID), zap.Error(err))
			}
			return
		}

		s.handle(conversationID, machine, msg)
	}
}

// attach resumes an existing conversation or starts a new one.
func (s *socketSession) attach(conversationID string) (*conversation.Machine, string, error) {
	if conversationID != "" {
		machine, err := s.gateway.manager.Get(conversationID)
		if err != nil {
			return nil, "", err
		}
		return machine, conversationID, nil
	}

	id, _ := s.gateway.manager.Start()
	machine, err := s.gateway.manager.Get(id)
	if err != nil {
		return nil, "", err
	}
	return machine, id, nil
}

func (s *socketSession) handle(conversationID string, machine *conversation.Machine, msg ClientMessage) {
	switch msg.Type {
	case TypeUtterance:
		outcome, err := machine.ProcessUtterance(context.Background(), msg.Utterance)
		if err != nil {
			// Stale or finished turns are answered with the current state
			// so the client stays in sync; nothing was applied.
			logging.LogWarn("Turn not applied",
				zap.String("conversation_id", conversationID),
				zap.String("utterance", security.SanitizeLogInput(msg.Utterance)),
				zap.Error(err))
		}
		if s.gateway.observer != nil {
			s.gateway.observer(conversationID, msg.Utterance, outcome, err)
		}
		s.write(StateMessage(conversationID, outcome))
		if outcome.Confirmed != nil {
			s.write(ServerMessage{
				Type:           TypeGuestConfirmed,
				ConversationID: conversationID,
				Guest:          outcome.Confirmed,
			})
		}
	case TypeCaptureError:
		outcome := machine.HandleCaptureError(ParseErrorKind(msg.ErrorKind))
		s.write(StateMessage(conversationID, outcome))
	case TypeReset:
		outcome := machine.Reset()
		s.write(StateMessage(conversationID, outcome))
	default:
		s.write(ServerMessage{Type: TypeError, Message: "unknown message type"})
	}
}

func (s *socketSession) write(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		logging.LogWarn("WebSocket write error", zap.Error(err))
	}
}

// startPing keeps the connection alive; returns a stop function.
func (s *socketSession) startPing() func() {
	ticker := time.NewTicker(pingInterval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.writeMu.Lock()
				err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
				s.writeMu.Unlock()
				if err != nil {
					logging.LogWarn("WebSocket ping error", zap.Error(err))
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
