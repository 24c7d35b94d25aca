package sqlstore

import (
	"context"
	"errors"

	"GVChat/data/database"
	chatmodel "GVChat/module/chat/model"
	notimodel "GVChat/module/notification/model"
	usermodel "GVChat/module/user/model"
	"GVChat/tools/errs"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (creating if needed) a SQLite database and migrates the chat
// tables. ":memory:" is pinned to one connection so every query sees the
// same database.
func Open(path string, silent bool) (*database.Store, error) {
	cfg := &gorm.Config{TranslateError: true}
	if silent {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	} else {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, errs.WrapMsg(err, "open sqlite", "path", path)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.WrapMsg(err, "sqlite handle", "path", path)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	st := NewStore(db)
	st.Close = func(context.Context) error { return sqlDB.Close() }
	return st, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&usermodel.User{},
		&usermodel.CommunityMember{},
		&usermodel.EventParticipant{},
		&chatmodel.ChatMessage{},
		&notimodel.Notification{},
	)
	return errs.WrapMsg(err, "sqlite migrate")
}

func NewStore(db *gorm.DB) *database.Store {
	return &database.Store{
		Messages:      NewMessageRepo(db),
		Users:         NewUserRepo(db),
		Notifications: NewNotificationRepo(db),
		Close:         func(context.Context) error { return nil },
	}
}

func persistErr(err error, op string, kv ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.ErrRecordNotFound.WrapMsg(op, kv...)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.ErrRecordExist.WrapMsg(op, kv...)
	default:
		return errs.ErrPersistence.WrapMsg(op+": "+err.Error(), kv...)
	}
}

func affected(res *gorm.DB, op string, kv ...any) error {
	if res.Error != nil {
		return persistErr(res.Error, op, kv...)
	}
	if res.RowsAffected == 0 {
		return errs.ErrRecordNotFound.WrapMsg(op, kv...)
	}
	return nil
}

func newestFirst(q *gorm.DB, limit int) *gorm.DB {
	q = q.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}
