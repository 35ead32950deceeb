// Package domain defines the persistence models for conversations, messages,
// and feedback. These types are mapped with GORM and form the core data layer
// of the storefront chat service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Sender roles. Automated replies are always recorded under RoleAdmin with
// the Automated flag set; there is no separate "assistant" role on the wire.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// SystemSenderID is the sentinel sender id used for automated replies.
const SystemSenderID = "system"

// AutomatedSenderName is the display name recorded on automated replies.
const AutomatedSenderName = "AI Assistant"

// Conversation represents the single ongoing message thread between one
// customer and the store. Conversations are created lazily on the customer's
// first message and are never deleted; the unique index on CustomerID
// enforces the 1:1 customer↔conversation invariant.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CustomerID: identifier of the owning customer; unique.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Conversation struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	CustomerID string         `json:"customer_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_customer"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single entry within a conversation. Messages are
// authored either by the customer, by a human admin, or by the automated
// assistant (recorded under the admin role with Automated=true and the
// "system" sender id).
//
// Invariants:
//   - Messages within a conversation are totally ordered by CreatedAt,
//     with ties broken by ID.
//   - Automated implies SenderRole == RoleAdmin.
//   - Body, SenderID, SenderRole, and CreatedAt are immutable once
//     persisted; only Read may change afterwards.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ConversationID: foreign key to the owning conversation (indexed).
//   - SenderID: customer id, admin id, or SystemSenderID for automated replies.
//   - SenderRole: "customer" or "admin" (enforced by DB constraint).
//   - SenderName: display name shown in the chat UI.
//   - Body: full text content of the message.
//   - Automated: true when the body was produced by the generative backend.
//   - Read: customer-side read receipt; not consulted by routing logic.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - Conversation: FK association, ensures cascade delete/update.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string         `json:"sender_id"       gorm:"type:varchar(64);not null"`
	SenderRole     string         `json:"sender_role"     gorm:"type:varchar(16);not null;check:sender_role IN ('customer','admin')"`
	SenderName     string         `json:"sender_name"     gorm:"type:varchar(255);not null;default:''"`
	Body           string         `json:"body"            gorm:"type:text;not null"`
	Automated      bool           `json:"is_automated"    gorm:"column:is_automated;not null;default:false"`
	Read           bool           `json:"read"            gorm:"not null;default:false"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent thread. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Feedback represents a user-provided rating on a specific automated reply.
// A user can only leave one feedback entry per message (enforced by unique index).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - MessageID: foreign key to the rated message (unique per user).
//   - UserID: identifier of the feedback author (unique per message).
//   - Value: +1 (positive) or -1 (negative).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - Message: FK association, ensures cascade delete/update.
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string         `json:"message_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated automated reply. Feedback is cascade-deleted
	// if the underlying message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
