package mgo

import (
	"context"

	notimodel "GVChat/module/notification/model"
	"GVChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type NotificationRepo struct {
	coll *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) *NotificationRepo {
	return &NotificationRepo{coll: coll(db, notimodel.Notification{})}
}

func (r *NotificationRepo) Create(ctx context.Context, n *notimodel.Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	return persistErr(err, "insert notification", "id", n.ID)
}

func (r *NotificationRepo) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notimodel.Notification, error) {
	q := bson.M{"user_id": userID}
	if unreadOnly {
		q["is_read"] = false
	}
	cur, err := r.coll.Find(ctx, q, newestFirst(limit))
	if err != nil {
		return nil, persistErr(err, "find notifications", "user", userID)
	}
	out := make([]*notimodel.Notification, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, persistErr(err, "decode notifications", "user", userID)
	}
	return out, nil
}

func (r *NotificationRepo) Get(ctx context.Context, id int64) (*notimodel.Notification, error) {
	var n notimodel.Notification
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, persistErr(err, "get notification", "id", id)
	}
	return &n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return persistErr(err, "mark notification read", "id", id)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("mark notification read", "id", id)
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, bson.M{"user_id": userID, "is_read": false}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, persistErr(err, "mark all read", "user", userID)
	}
	return res.ModifiedCount, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
	return n, persistErr(err, "count unread notifications", "user", userID)
}
