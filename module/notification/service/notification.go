package service

import (
	"context"
	"fmt"
	"time"

	"GVChat/data/database"
	"GVChat/logger"
	chatmodel "GVChat/module/chat/model"
	notimodel "GVChat/module/notification/model"
	usermodel "GVChat/module/user/model"
	"GVChat/service/chat"
	"GVChat/tools/errs"
	"GVChat/tools/ids"

	"go.uber.org/zap"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	previewRunes = 100
)

// Pusher delivers a frame to a room on this node and, through the relay,
// on the others.
type Pusher interface {
	Emit(ctx context.Context, room, event string, payload any, except *chat.Conn) int
}

type UserLookup interface {
	Get(ctx context.Context, id int64) (*usermodel.User, error)
}

type NotificationService struct {
	store database.Notifications
	users UserLookup
	push  Pusher
	now   func() time.Time
}

func NewNotificationService(store database.Notifications, users UserLookup, push Pusher) *NotificationService {
	return &NotificationService{store: store, users: users, push: push, now: time.Now}
}

// MessageCreated notifies the receiver of a direct message and pushes the
// notification to their personal room. Other kinds are ignored.
func (s *NotificationService) MessageCreated(ctx context.Context, m *chatmodel.ChatMessage) error {
	if m.MessageType != chatmodel.KindDirect || m.ReceiverID == nil || *m.ReceiverID == m.SenderID {
		return nil
	}
	sender := fmt.Sprintf("user %d", m.SenderID)
	if m.Sender != nil {
		sender = displayName(m.Sender.DisplayName, m.Sender.Username)
	} else if u, err := s.users.Get(ctx, m.SenderID); err == nil {
		sender = u.Name()
	}
	related := m.ID
	n := &notimodel.Notification{
		ID:               ids.Generate(),
		UserID:           *m.ReceiverID,
		Title:            "New message",
		Content:          sender + ": " + preview(m.Content),
		NotificationType: notimodel.TypeMessage,
		RelatedID:        &related,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	if s.push != nil {
		s.push.Emit(ctx, chat.UserRoom(n.UserID), chat.EventNewNotification, n, nil)
	}
	logger.Debug("notification created", zap.Int64("id", n.ID), zap.Int64("user", n.UserID), zap.Int64("message", m.ID))
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notimodel.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.store.List(ctx, userID, unreadOnly, limit)
}

// MarkRead marks one of userID's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return errs.ErrForbidden.WrapMsg("not your notification", "id", id, "user", userID)
	}
	if n.IsRead {
		return nil
	}
	return s.store.MarkRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

func displayName(display, username string) string {
	if display != "" {
		return display
	}
	return username
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewRunes {
		return content
	}
	return string(r[:previewRunes]) + "..."
}
