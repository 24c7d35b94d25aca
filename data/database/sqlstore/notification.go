package sqlstore

import (
	"context"

	notimodel "GVChat/module/notification/model"

	"gorm.io/gorm"
)

type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *notimodel.Notification) error {
	return persistErr(r.db.WithContext(ctx).Create(n).Error, "insert notification", "id", n.ID)
}

func (r *NotificationRepo) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notimodel.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	out := make([]*notimodel.Notification, 0)
	if err := newestFirst(q, limit).Find(&out).Error; err != nil {
		return nil, persistErr(err, "find notifications", "user", userID)
	}
	return out, nil
}

func (r *NotificationRepo) Get(ctx context.Context, id int64) (*notimodel.Notification, error) {
	var n notimodel.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, persistErr(err, "get notification", "id", id)
	}
	return &n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&notimodel.Notification{}).Where("id = ?", id).Update("is_read", true)
	return affected(res, "mark notification read", "id", id)
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&notimodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	return res.RowsAffected, persistErr(res.Error, "mark all read", "user", userID)
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&notimodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, persistErr(err, "count unread notifications", "user", userID)
}
