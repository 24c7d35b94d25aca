package mgo

import (
	"context"

	"GVChat/data/database"
	"GVChat/data/database/mgo/mongoutil"
	chatmodel "GVChat/module/chat/model"
	notimodel "GVChat/module/notification/model"
	usermodel "GVChat/module/user/model"
	"GVChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func coll(db *mongo.Database, t database.Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}

// NewStore wires the Mongo repositories on an open database.
func NewStore(db *mongo.Database) *database.Store {
	return &database.Store{
		Messages:      NewMessageRepo(db),
		Users:         NewUserRepo(db),
		Notifications: NewNotificationRepo(db),
		Close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

// Open connects with retries, creates the indexes and returns the store.
func Open(ctx context.Context, cfg *mongoutil.Config) (*database.Store, error) {
	cli, err := mongoutil.NewMongoDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureIndexes(ctx, cli.GetDB()); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return NewStore(cli.GetDB()), nil
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := []struct {
		t      database.Table
		models []mongo.IndexModel
	}{
		{chatmodel.ChatMessage{}, []mongo.IndexModel{
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}}},
			{Keys: bson.D{{Key: "community_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
		{usermodel.User{}, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		}},
		{usermodel.CommunityMember{}, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "community_id", Value: 1}}, Options: unique},
		}},
		{usermodel.EventParticipant{}, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "event_id", Value: 1}}, Options: unique},
		}},
		{notimodel.Notification{}, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
	}
	for _, s := range specs {
		if _, err := coll(db, s.t).Indexes().CreateMany(ctx, s.models); err != nil {
			return errs.WrapMsg(err, "create indexes", "collection", s.t.GetTableName())
		}
	}
	return nil
}

// persistErr maps driver errors onto the codes the services switch on.
func persistErr(err error, op string, kv ...any) error {
	switch {
	case err == nil:
		return nil
	case err == mongo.ErrNoDocuments:
		return errs.ErrRecordNotFound.WrapMsg(op, kv...)
	case mongo.IsDuplicateKeyError(err):
		return errs.ErrRecordExist.WrapMsg(op, kv...)
	default:
		return errs.ErrPersistence.WrapMsg(op+": "+err.Error(), kv...)
	}
}

func newestFirst(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}
