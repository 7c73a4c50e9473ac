// Package domain defines the persistence models for conversations, chat
// messages, response patterns, orders, and feedback. These types are mapped
// with GORM and form the core data layer of the support backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// OrderStatus enumerates the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
	OrderOnHold     OrderStatus = "ON_HOLD"
)

// PaymentStatus enumerates the payment lifecycle of an order. PaymentPaid is
// only ever written when the provider reports a succeeded intent.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentCancelled         PaymentStatus = "CANCELLED"
)

// Conversation represents one support session. It is created on the first
// message of a session and accumulates user/assistant message pairs; the
// running TotalMessages counter increments by two per exchange.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - SessionID: client-provided session identifier; unique per conversation.
//   - UserID: owner when the caller is authenticated; empty for guests.
//   - Subject: human-readable subject (auto-generated from the first message).
//   - TotalMessages: running message count, maintained by the service layer.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (lifecycle owned by retention policy).
type Conversation struct {
	ID            string         `json:"id"                gorm:"type:char(36);primaryKey"`
	SessionID     string         `json:"session_id"        gorm:"type:varchar(128);not null;uniqueIndex:ux_conv_session"`
	UserID        string         `json:"user_id,omitempty" gorm:"type:varchar(64);index:idx_conv_user"`
	Subject       string         `json:"subject"           gorm:"type:varchar(255);not null;default:'New conversation'"`
	TotalMessages int            `json:"total_messages"    gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// ChatMessage is a single utterance within a conversation, authored either by
// the "user" or the "assistant". Assistant messages may carry the confidence
// of the match that produced them and the matched pattern id. Messages are
// immutable once stored.
type ChatMessage struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	Role           string         `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	Confidence     *float64       `json:"confidence,omitempty"` // only for assistant messages
	PatternID      *string        `json:"pattern_id,omitempty"  gorm:"type:char(36)"`
	IntentType     string         `json:"intent_type,omitempty" gorm:"type:varchar(32)"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent session. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Pattern is an admin-curated canned response. Its triggers are owned
// many-to-one and cascade on delete: removing a pattern removes its triggers.
type Pattern struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	Response  string         `json:"response"  gorm:"type:text;not null"`
	Priority  int            `json:"priority"  gorm:"not null;default:0"`
	IsActive  bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`

	Triggers []Trigger `json:"triggers" gorm:"foreignKey:PatternID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Pattern.
func (Pattern) TableName() string { return "patterns" }

// Trigger is a plain-text phrase that invokes its owning pattern. Phrases are
// compared case-insensitively by the matcher.
type Trigger struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	PatternID string    `json:"pattern_id" gorm:"type:char(36);not null;index"`
	Phrase    string    `json:"phrase"     gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Trigger.
func (Trigger) TableName() string { return "triggers" }

// Feedback represents a user-provided rating on a specific assistant message.
// A user can only leave one feedback entry per message (enforced by unique index).
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string         `json:"message_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated assistant message. Feedback is cascade-deleted
	// if the underlying message is removed.
	Message ChatMessage `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// Order is a customer order consumed by the support and payment flows. The
// payment resolver mutates only payment-related fields; the wider order
// lifecycle is owned by the storefront.
type Order struct {
	ID              string        `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID          string        `json:"user_id"  gorm:"type:varchar(64);not null;index:idx_user_orders"`
	Number          string        `json:"number"   gorm:"type:varchar(32);not null;uniqueIndex:ux_order_number"`
	Status          OrderStatus   `json:"status"   gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"type:varchar(24);not null;default:'PENDING'"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty" gorm:"type:varchar(64);index"`
	PaymentAttempts int           `json:"payment_attempts" gorm:"not null;default:0"`
	TrackingNumber  string        `json:"tracking_number,omitempty" gorm:"type:varchar(64)"`
	Total           float64       `json:"total"    gorm:"not null;default:0"`
	Currency        string        `json:"currency" gorm:"type:char(3);not null;default:'EUR'"`
	PlacedAt        time.Time     `json:"placed_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is a single line of an order.
type OrderItem struct {
	ID        string  `json:"id"         gorm:"type:char(36);primaryKey"`
	OrderID   string  `json:"order_id"   gorm:"type:char(36);not null;index"`
	Name      string  `json:"name"       gorm:"type:varchar(255);not null"`
	Quantity  int     `json:"quantity"   gorm:"not null;default:1"`
	UnitPrice float64 `json:"unit_price" gorm:"not null;default:0"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// Address is a customer's saved shipping address, listed by the account-info
// branch of the dispatcher.
type Address struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_addresses"`
	Label      string    `json:"label"       gorm:"type:varchar(64)"`
	Line1      string    `json:"line1"       gorm:"type:varchar(255);not null"`
	Line2      string    `json:"line2,omitempty" gorm:"type:varchar(255)"`
	City       string    `json:"city"        gorm:"type:varchar(128);not null"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(16)"`
	Country    string    `json:"country"     gorm:"type:char(2);not null"`
	IsDefault  bool      `json:"is_default"  gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Address.
func (Address) TableName() string { return "addresses" }
