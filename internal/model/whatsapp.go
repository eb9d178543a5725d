package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	MessageReceived  = "received"
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
)

// Contact is a WhatsApp conversation partner, keyed by the provider's wa_id.
// swagger:model Contact
type Contact struct {
	BaseModel
	OrganizationID *uint      `gorm:"index" json:"organizationId,omitempty"`
	WaID           string     `gorm:"size:64;uniqueIndex;not null" json:"waId"`
	ProfileName    string     `gorm:"size:150" json:"profileName"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
	LastMessage    string     `gorm:"type:text" json:"lastMessage"`
}

func (Contact) TableName() string {
	return "wa_contacts"
}

// swagger:model WAMessage
type WAMessage struct {
	BaseModel
	MessageID string         `gorm:"size:128;uniqueIndex;not null" json:"messageId"`
	ContactID uint           `gorm:"index;not null" json:"contactId"`
	Contact   *Contact       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Direction string         `gorm:"size:10;not null" json:"direction"`
	Type      string         `gorm:"size:20" json:"type"`
	Body      string         `gorm:"type:text" json:"body"`
	Status    string         `gorm:"size:20" json:"status"`
	Timestamp time.Time      `gorm:"column:sent_at" json:"timestamp"`
	Raw       datatypes.JSON `json:"-"`
}

func (WAMessage) TableName() string {
	return "wa_messages"
}

// WAStatus is an append-only delivery status report for a message.
// swagger:model WAStatus
type WAStatus struct {
	BaseModel
	WAMessageID uint       `gorm:"index;not null" json:"waMessageId"`
	WAMessage   *WAMessage `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	RecipientID string     `gorm:"size:64" json:"recipientId"`
	Timestamp   time.Time  `gorm:"column:reported_at" json:"timestamp"`
}

func (WAStatus) TableName() string {
	return "wa_statuses"
}
