package database

import (
	"context"
	"time"

	chatmodel "GVChat/module/chat/model"
	notimodel "GVChat/module/notification/model"
	usermodel "GVChat/module/user/model"
)

// MessageFilter selects a message window. Direct queries are seen from
// UserID: with ChatID set they return the pair's messages in both
// directions, without it every direct message UserID sent or received.
// Community and event queries require ChatID. Limit <= 0 means no limit.
type MessageFilter struct {
	Kind   chatmodel.Kind
	UserID int64
	ChatID *int64
	Limit  int
}

// Messages is the message store. Query returns newest first.
type Messages interface {
	Create(ctx context.Context, m *chatmodel.ChatMessage) error
	Query(ctx context.Context, f MessageFilter) ([]*chatmodel.ChatMessage, error)
	Get(ctx context.Context, id int64) (*chatmodel.ChatMessage, error)
	MarkRead(ctx context.Context, id int64) error
	CountUnread(ctx context.Context, senderID, receiverID int64) (int64, error)
}

// Users is the user directory plus the membership tables the join policy
// consults.
type Users interface {
	Create(ctx context.Context, u *usermodel.User) error
	Get(ctx context.Context, id int64) (*usermodel.User, error)
	FindByLogin(ctx context.Context, login string) (*usermodel.User, error)
	SetOnline(ctx context.Context, id int64, online bool, at time.Time) error

	AddCommunityMember(ctx context.Context, m *usermodel.CommunityMember) error
	AddEventParticipant(ctx context.Context, p *usermodel.EventParticipant) error
	IsCommunityMember(ctx context.Context, userID, communityID int64) (bool, error)
	IsEventParticipant(ctx context.Context, userID, eventID int64) (bool, error)
}

type Notifications interface {
	Create(ctx context.Context, n *notimodel.Notification) error
	List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notimodel.Notification, error)
	Get(ctx context.Context, id int64) (*notimodel.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Messages      Messages
	Users         Users
	Notifications Notifications
	Close         func(ctx context.Context) error
}
