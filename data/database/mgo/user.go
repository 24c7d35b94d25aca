package mgo

import (
	"context"
	"time"

	usermodel "GVChat/module/user/model"
	"GVChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo struct {
	users        *mongo.Collection
	members      *mongo.Collection
	participants *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		users:        coll(db, usermodel.User{}),
		members:      coll(db, usermodel.CommunityMember{}),
		participants: coll(db, usermodel.EventParticipant{}),
	}
}

func (r *UserRepo) Create(ctx context.Context, u *usermodel.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	_, err := r.users.InsertOne(ctx, u)
	return persistErr(err, "insert user", "id", u.ID)
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*usermodel.User, error) {
	var u usermodel.User
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, persistErr(err, "get user", "id", id)
	}
	return &u, nil
}

func (r *UserRepo) FindByLogin(ctx context.Context, login string) (*usermodel.User, error) {
	var u usermodel.User
	q := bson.M{"$or": bson.A{bson.M{"username": login}, bson.M{"email": login}}}
	if err := r.users.FindOne(ctx, q).Decode(&u); err != nil {
		return nil, persistErr(err, "find user", "login", login)
	}
	return &u, nil
}

func (r *UserRepo) SetOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_online":  online,
		"last_seen":  at,
		"updated_at": at,
	}})
	if err != nil {
		return persistErr(err, "set online", "id", id)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("set online", "id", id)
	}
	return nil
}

func (r *UserRepo) AddCommunityMember(ctx context.Context, m *usermodel.CommunityMember) error {
	if m.Role == "" {
		m.Role = usermodel.RoleMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	_, err := r.members.UpdateOne(ctx,
		bson.M{"user_id": m.UserID, "community_id": m.CommunityID},
		bson.M{"$set": m},
		options.Update().SetUpsert(true))
	return persistErr(err, "add community member", "user", m.UserID, "community", m.CommunityID)
}

func (r *UserRepo) AddEventParticipant(ctx context.Context, p *usermodel.EventParticipant) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	_, err := r.participants.UpdateOne(ctx,
		bson.M{"user_id": p.UserID, "event_id": p.EventID},
		bson.M{"$set": p},
		options.Update().SetUpsert(true))
	return persistErr(err, "add event participant", "user", p.UserID, "event", p.EventID)
}

func exists(ctx context.Context, c *mongo.Collection, q bson.M) (bool, error) {
	n, err := c.CountDocuments(ctx, q, options.Count().SetLimit(1))
	if err != nil {
		return false, persistErr(err, "count", "collection", c.Name())
	}
	return n > 0, nil
}

func (r *UserRepo) IsCommunityMember(ctx context.Context, userID, communityID int64) (bool, error) {
	return exists(ctx, r.members, bson.M{"user_id": userID, "community_id": communityID})
}

func (r *UserRepo) IsEventParticipant(ctx context.Context, userID, eventID int64) (bool, error) {
	return exists(ctx, r.participants, bson.M{"user_id": userID, "event_id": eventID})
}
