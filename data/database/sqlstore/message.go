package sqlstore

import (
	"context"

	"GVChat/data/database"
	chatmodel "GVChat/module/chat/model"
	"GVChat/tools/errs"

	"gorm.io/gorm"
)

type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, m *chatmodel.ChatMessage) error {
	return persistErr(r.db.WithContext(ctx).Create(m).Error, "insert message", "id", m.ID)
}

func (r *MessageRepo) Query(ctx context.Context, f database.MessageFilter) ([]*chatmodel.ChatMessage, error) {
	q := r.db.WithContext(ctx).Where("message_type = ?", f.Kind)
	switch f.Kind {
	case chatmodel.KindDirect:
		if f.ChatID != nil {
			q = q.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				f.UserID, *f.ChatID, *f.ChatID, f.UserID)
		} else {
			q = q.Where("sender_id = ? OR receiver_id = ?", f.UserID, f.UserID)
		}
	case chatmodel.KindCommunity:
		if f.ChatID == nil {
			return nil, errs.ErrArgs.WrapMsg("chat_id is required", "type", f.Kind)
		}
		q = q.Where("community_id = ?", *f.ChatID)
	case chatmodel.KindEvent:
		if f.ChatID == nil {
			return nil, errs.ErrArgs.WrapMsg("chat_id is required", "type", f.Kind)
		}
		q = q.Where("event_id = ?", *f.ChatID)
	default:
		return nil, errs.ErrArgs.WrapMsg("unknown message type", "type", f.Kind)
	}

	out := make([]*chatmodel.ChatMessage, 0)
	if err := newestFirst(q, f.Limit).Find(&out).Error; err != nil {
		return nil, persistErr(err, "find messages")
	}
	return out, nil
}

func (r *MessageRepo) Get(ctx context.Context, id int64) (*chatmodel.ChatMessage, error) {
	var m chatmodel.ChatMessage
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, persistErr(err, "get message", "id", id)
	}
	return &m, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&chatmodel.ChatMessage{}).Where("id = ?", id).Update("is_read", true)
	return affected(res, "mark message read", "id", id)
}

func (r *MessageRepo) CountUnread(ctx context.Context, senderID, receiverID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&chatmodel.ChatMessage{}).
		Where("message_type = ? AND sender_id = ? AND receiver_id = ? AND is_read = ?",
			chatmodel.KindDirect, senderID, receiverID, false).
		Count(&n).Error
	return n, persistErr(err, "count unread", "sender", senderID, "receiver", receiverID)
}
