package mgo

import (
	"testing"

	"GVChat/data/database"
	chatmodel "GVChat/module/chat/model"
	"GVChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMessageFilterDirectPair(t *testing.T) {
	peer := int64(7)
	q, err := messageFilter(database.MessageFilter{Kind: chatmodel.KindDirect, UserID: 3, ChatID: &peer})
	require.NoError(t, err)
	assert.Equal(t, chatmodel.KindDirect, q["message_type"])
	assert.Equal(t, bson.A{
		bson.M{"sender_id": int64(3), "receiver_id": int64(7)},
		bson.M{"sender_id": int64(7), "receiver_id": int64(3)},
	}, q["$or"])
}

func TestMessageFilterCommunityNeedsChatID(t *testing.T) {
	_, err := messageFilter(database.MessageFilter{Kind: chatmodel.KindCommunity, UserID: 3})
	assert.True(t, errs.ErrArgs.Is(err))

	id := int64(11)
	q, err := messageFilter(database.MessageFilter{Kind: chatmodel.KindEvent, ChatID: &id})
	require.NoError(t, err)
	assert.Equal(t, int64(11), q["event_id"])
}
