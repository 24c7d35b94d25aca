package mgo

import (
	"context"

	"GVChat/data/database"
	chatmodel "GVChat/module/chat/model"
	"GVChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: coll(db, chatmodel.ChatMessage{})}
}

func (r *MessageRepo) Create(ctx context.Context, m *chatmodel.ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, m)
	return persistErr(err, "insert message", "id", m.ID)
}

func messageFilter(f database.MessageFilter) (bson.M, error) {
	q := bson.M{"message_type": f.Kind}
	switch f.Kind {
	case chatmodel.KindDirect:
		if f.ChatID != nil {
			q["$or"] = bson.A{
				bson.M{"sender_id": f.UserID, "receiver_id": *f.ChatID},
				bson.M{"sender_id": *f.ChatID, "receiver_id": f.UserID},
			}
		} else {
			q["$or"] = bson.A{
				bson.M{"sender_id": f.UserID},
				bson.M{"receiver_id": f.UserID},
			}
		}
	case chatmodel.KindCommunity, chatmodel.KindEvent:
		if f.ChatID == nil {
			return nil, errs.ErrArgs.WrapMsg("chat_id is required", "type", f.Kind)
		}
		if f.Kind == chatmodel.KindCommunity {
			q["community_id"] = *f.ChatID
		} else {
			q["event_id"] = *f.ChatID
		}
	default:
		return nil, errs.ErrArgs.WrapMsg("unknown message type", "type", f.Kind)
	}
	return q, nil
}

func (r *MessageRepo) Query(ctx context.Context, f database.MessageFilter) ([]*chatmodel.ChatMessage, error) {
	q, err := messageFilter(f)
	if err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, q, newestFirst(f.Limit))
	if err != nil {
		return nil, persistErr(err, "find messages")
	}
	out := make([]*chatmodel.ChatMessage, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, persistErr(err, "decode messages")
	}
	return out, nil
}

func (r *MessageRepo) Get(ctx context.Context, id int64) (*chatmodel.ChatMessage, error) {
	var m chatmodel.ChatMessage
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, persistErr(err, "get message", "id", id)
	}
	return &m, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, id int64) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return persistErr(err, "mark message read", "id", id)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("mark message read", "id", id)
	}
	return nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, senderID, receiverID int64) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"message_type": chatmodel.KindDirect,
		"sender_id":    senderID,
		"receiver_id":  receiverID,
		"is_read":      false,
	})
	return n, persistErr(err, "count unread", "sender", senderID, "receiver", receiverID)
}
