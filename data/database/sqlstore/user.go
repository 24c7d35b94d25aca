package sqlstore

import (
	"context"
	"time"

	usermodel "GVChat/module/user/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *usermodel.User) error {
	return persistErr(r.db.WithContext(ctx).Create(u).Error, "insert user", "id", u.ID)
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*usermodel.User, error) {
	var u usermodel.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, persistErr(err, "get user", "id", id)
	}
	return &u, nil
}

func (r *UserRepo) FindByLogin(ctx context.Context, login string) (*usermodel.User, error) {
	var u usermodel.User
	if err := r.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&u).Error; err != nil {
		return nil, persistErr(err, "find user", "login", login)
	}
	return &u, nil
}

func (r *UserRepo) SetOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&usermodel.User{}).Where("id = ?", id).Updates(map[string]any{
		"is_online":  online,
		"last_seen":  at,
		"updated_at": at,
	})
	return affected(res, "set online", "id", id)
}

func (r *UserRepo) AddCommunityMember(ctx context.Context, m *usermodel.CommunityMember) error {
	if m.Role == "" {
		m.Role = usermodel.RoleMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error
	return persistErr(err, "add community member", "user", m.UserID, "community", m.CommunityID)
}

func (r *UserRepo) AddEventParticipant(ctx context.Context, p *usermodel.EventParticipant) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error
	return persistErr(err, "add event participant", "user", p.UserID, "event", p.EventID)
}

func (r *UserRepo) IsCommunityMember(ctx context.Context, userID, communityID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&usermodel.CommunityMember{}).
		Where("user_id = ? AND community_id = ?", userID, communityID).Count(&n).Error
	return n > 0, persistErr(err, "check community member", "user", userID, "community", communityID)
}

func (r *UserRepo) IsEventParticipant(ctx context.Context, userID, eventID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&usermodel.EventParticipant{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).Count(&n).Error
	return n > 0, persistErr(err, "check event participant", "user", userID, "event", eventID)
}
