package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/atssj/prj-guest-list-planner/internal/security"
)

// NATSService handles NATS messaging for the guest planner
type NATSService struct {
	conn          *nats.Conn
	url           string
	maxReconnects int
	reconnectWait time.Duration
}

// GuestConfirmedEvent announces a guest party confirmed through conversation
type GuestConfirmedEvent struct {
	GuestID        string `json:"guest_id"`
	ConversationID string `json:"conversation_id"`
	FamilyName     string `json:"family_name"`
	Adults         int    `json:"adults"`
	Children       int    `json:"children"`
	Timestamp      int64  `json:"timestamp"`
}

// TurnProcessedEvent announces one processed conversation turn
type TurnProcessedEvent struct {
	ConversationID string `json:"conversation_id"`
	Stage          string `json:"stage"`
	NextStage      string `json:"next_stage"`
	ParsingError   string `json:"parsing_error,omitempty"`
	Repaired       bool   `json:"repaired"`
	Timestamp      int64  `json:"timestamp"`
}

// NATS subjects for different event types
const (
	SubjectGuestsConfirmed   = "guestplanner.guests.confirmed"
	SubjectConversationTurns = "guestplanner.conversation.turns"
	SubjectSystemEvents      = "guestplanner.system.events"
)

// NewNATSServiceWithConfig creates a NATS service with explicit connection
// settings. maxReconnects of -1 retries indefinitely.
func NewNATSServiceWithConfig(url string, maxReconnects int, reconnectWait time.Duration) *NATSService {
	return &NATSService{
		url:           url,
		maxReconnects: maxReconnects,
		reconnectWait: reconnectWait,
	}
}

// Connect establishes connection to NATS server
func (ns *NATSService) Connect() error {
	log.Printf("🔌 Connecting to NATS at %s", ns.url)

	// Connection options with retry logic
	opts := []nats.Option{
		nats.Name("guest-list-planner"),
		nats.ReconnectWait(ns.reconnectWait),
		nats.MaxReconnects(ns.maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️  NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	log.Printf("✅ Connected to NATS server at %s", conn.ConnectedUrl())
	return nil
}

// PublishGuestConfirmed publishes a confirmed guest event
func (ns *NATSService) PublishGuestConfirmed(event *GuestConfirmedEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal guest confirmed event: %w", err)
	}

	if err := ns.conn.Publish(SubjectGuestsConfirmed, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectGuestsConfirmed, err)
	}

	log.Printf("📤 Published guest confirmed to NATS - Family: %s, Party: %d+%d",
		security.SanitizeLogInput(event.FamilyName), event.Adults, event.Children)
	return nil
}

// PublishTurnProcessed publishes a processed conversation turn event
func (ns *NATSService) PublishTurnProcessed(event *TurnProcessedEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn processed event: %w", err)
	}

	if err := ns.conn.Publish(SubjectConversationTurns, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectConversationTurns, err)
	}

	return nil
}

// SubscribeToGuestConfirmed subscribes to confirmed guest events
func (ns *NATSService) SubscribeToGuestConfirmed(handler func(*GuestConfirmedEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectGuestsConfirmed, func(msg *nats.Msg) {
		var event GuestConfirmedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("❌ Error unmarshaling guest confirmed event: %v", err)
			return
		}

		log.Printf("📥 Received guest confirmed from NATS - Family: %s",
			security.SanitizeLogInput(event.FamilyName))
		handler(&event)
	})
}

// SubscribeToConversationTurns subscribes to processed turn events
func (ns *NATSService) SubscribeToConversationTurns(handler func(*TurnProcessedEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectConversationTurns, func(msg *nats.Msg) {
		var event TurnProcessedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("❌ Error unmarshaling turn processed event: %v", err)
			return
		}

		handler(&event)
	})
}

// Close closes the NATS connection
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
		log.Println("🔌 NATS connection closed")
	}
}

// IsConnected returns true if connected to NATS
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// GetStats returns connection statistics
func (ns *NATSService) GetStats() nats.Statistics {
	if ns.conn != nil {
		return ns.conn.Stats()
	}
	return nats.Statistics{}
}
