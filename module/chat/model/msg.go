package model

import (
	"strconv"
	"time"

	usermodel "GVChat/module/user/model"
)

// Kind says which conversation a message belongs to.
type Kind string

const (
	KindDirect    Kind = "direct"
	KindCommunity Kind = "community"
	KindEvent     Kind = "event"
)

// ParseKind accepts the wire names. An empty string means direct, which is
// what clients that omit message_type have always gotten.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case "", KindDirect:
		return KindDirect, true
	case KindCommunity:
		return KindCommunity, true
	case KindEvent:
		return KindEvent, true
	}
	return "", false
}

// HistoryLimit is the size of the message window the API returns.
const HistoryLimit = 50

// ChatMessage is one persisted chat line. At most one of ReceiverID,
// CommunityID and EventID is set, matching MessageType (ReceiverID may be
// empty for a direct note to self).
type ChatMessage struct {
	ID          int64     `bson:"_id" gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Content     string    `bson:"content" gorm:"type:text;not null" json:"content"`
	SenderID    int64     `bson:"sender_id" gorm:"index;not null" json:"sender_id,string"`
	ReceiverID  *int64    `bson:"receiver_id,omitempty" gorm:"index" json:"receiver_id,string"`
	CommunityID *int64    `bson:"community_id,omitempty" gorm:"index" json:"community_id,string"`
	EventID     *int64    `bson:"event_id,omitempty" gorm:"index" json:"event_id,string"`
	MessageType Kind      `bson:"message_type" gorm:"size:20;index;not null" json:"message_type"`
	IsRead      bool      `bson:"is_read" json:"is_read"`
	CreatedAt   time.Time `bson:"created_at" gorm:"index" json:"created_at"`

	Sender   *usermodel.Summary `bson:"-" gorm:"-" json:"sender"`
	Receiver *usermodel.Summary `bson:"-" gorm:"-" json:"receiver"`
}

func (ChatMessage) GetTableName() string { return "messages" }

func (m ChatMessage) TableName() string { return m.GetTableName() }

// Target is the conversation id for the message kind: receiver, community
// or event id. ok is false when the kind's field is unset.
func (m *ChatMessage) Target() (id int64, ok bool) {
	var p *int64
	switch m.MessageType {
	case KindDirect:
		p = m.ReceiverID
	case KindCommunity:
		p = m.CommunityID
	case KindEvent:
		p = m.EventID
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Normalize clears the fields the message kind does not use.
func (m *ChatMessage) Normalize() {
	switch m.MessageType {
	case KindDirect:
		m.CommunityID, m.EventID = nil, nil
	case KindCommunity:
		m.ReceiverID, m.EventID = nil, nil
	case KindEvent:
		m.ReceiverID, m.CommunityID = nil, nil
	}
}

func (m *ChatMessage) IDString() string { return strconv.FormatInt(m.ID, 10) }
