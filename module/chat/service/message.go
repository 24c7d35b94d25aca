package service

import (
	"context"

	"GVChat/data/database"
	chatmodel "GVChat/module/chat/model"
	usermodel "GVChat/module/user/model"
	"GVChat/service/chat"
	"GVChat/tools/errs"
)

// Gateway is the part of the chat core the HTTP API goes through, so a
// message posted over HTTP is broadcast like one sent over the socket.
type Gateway interface {
	Send(ctx context.Context, senderID int64, req *chat.SendRequest) (*chatmodel.ChatMessage, error)
	Authorize(ctx context.Context, userID int64, kind chatmodel.Kind, id int64) error
}

type UserLookup interface {
	Get(ctx context.Context, id int64) (*usermodel.User, error)
}

// Conversation is one direct chat as listed for a user.
type Conversation struct {
	Type        chatmodel.Kind         `json:"type"`
	ID          int64                  `json:"id,string"`
	Name        string                 `json:"name"`
	Avatar      string                 `json:"avatar"`
	LastMessage *chatmodel.ChatMessage `json:"last_message"`
	UnreadCount int64                  `json:"unread_count"`
}

type MessageService struct {
	msgs  database.Messages
	users UserLookup
	gw    Gateway
	limit int
}

func NewMessageService(msgs database.Messages, users UserLookup, gw Gateway, limit int) *MessageService {
	if limit <= 0 {
		limit = chatmodel.HistoryLimit
	}
	return &MessageService{msgs: msgs, users: users, gw: gw, limit: limit}
}

// History returns the newest messages of one conversation as seen by
// userID. Direct without chatID means all of userID's direct messages;
// community and event need chatID.
func (s *MessageService) History(ctx context.Context, userID int64, kindName string, chatID *int64) ([]*chatmodel.ChatMessage, error) {
	kind, ok := chatmodel.ParseKind(kindName)
	if !ok {
		return nil, errs.ErrArgs.WrapMsg("unknown message type", "type", kindName)
	}
	if kind != chatmodel.KindDirect {
		if chatID == nil {
			return nil, errs.ErrArgs.WrapMsg("chat_id required", "type", kind)
		}
		if err := s.gw.Authorize(ctx, userID, kind, *chatID); err != nil {
			return nil, err
		}
	}
	list, err := s.msgs.Query(ctx, database.MessageFilter{Kind: kind, UserID: userID, ChatID: chatID, Limit: s.limit})
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, list)
	return list, nil
}

func (s *MessageService) Send(ctx context.Context, senderID int64, req *chat.SendRequest) (*chatmodel.ChatMessage, error) {
	return s.gw.Send(ctx, senderID, req)
}

// MarkRead is allowed to the receiver only.
func (s *MessageService) MarkRead(ctx context.Context, userID, id int64) error {
	m, err := s.msgs.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.ReceiverID == nil || *m.ReceiverID != userID {
		return errs.ErrForbidden.WrapMsg("not the receiver", "id", id, "user", userID)
	}
	if m.IsRead {
		return nil
	}
	return s.msgs.MarkRead(ctx, id)
}

// Conversations lists one entry per direct peer, most recent first.
func (s *MessageService) Conversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	list, err := s.msgs.Query(ctx, database.MessageFilter{Kind: chatmodel.KindDirect, UserID: userID})
	if err != nil {
		return nil, err
	}
	out := make([]*Conversation, 0)
	seen := make(map[int64]struct{})
	users := make(map[int64]*usermodel.User)
	for _, m := range list {
		peer := m.SenderID
		if peer == userID {
			if m.ReceiverID == nil {
				continue
			}
			peer = *m.ReceiverID
		}
		if _, ok := seen[peer]; ok {
			continue
		}
		seen[peer] = struct{}{}

		unread, err := s.msgs.CountUnread(ctx, peer, userID)
		if err != nil {
			return nil, err
		}
		conv := &Conversation{Type: chatmodel.KindDirect, ID: peer, LastMessage: m, UnreadCount: unread}
		if u := s.lookup(ctx, users, peer); u != nil {
			conv.Name = u.Name()
			conv.Avatar = u.AvatarURL
		}
		out = append(out, conv)
	}
	lasts := make([]*chatmodel.ChatMessage, 0, len(out))
	for _, c := range out {
		lasts = append(lasts, c.LastMessage)
	}
	s.enrichWith(ctx, users, lasts)
	return out, nil
}

func (s *MessageService) enrich(ctx context.Context, list []*chatmodel.ChatMessage) {
	s.enrichWith(ctx, make(map[int64]*usermodel.User), list)
}

func (s *MessageService) enrichWith(ctx context.Context, cache map[int64]*usermodel.User, list []*chatmodel.ChatMessage) {
	for _, m := range list {
		m.Sender = s.lookup(ctx, cache, m.SenderID).Summary()
		if m.ReceiverID != nil {
			m.Receiver = s.lookup(ctx, cache, *m.ReceiverID).Summary()
		}
	}
}

// lookup caches misses as nil so a deleted user is asked for once.
func (s *MessageService) lookup(ctx context.Context, cache map[int64]*usermodel.User, id int64) *usermodel.User {
	if u, ok := cache[id]; ok {
		return u
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		u = nil
	}
	cache[id] = u
	return u
}
