package chat

import (
	"context"
	"strconv"

	chatmodel "GVChat/module/chat/model"
	"GVChat/tools/errs"
)

// Inbound events.
const (
	EventConnect     = "connect"
	EventDisconnect  = "disconnect"
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Outbound events.
const (
	EventConnected       = "connected"
	EventNewMessage      = "new_message"
	EventUserTyping      = "user_typing"
	EventNewNotification = "new_notification"
)

// Handler processes one inbound event for one connection.
type Handler interface {
	Event() string
	Handle(ctx *Context, c *Conn, data []byte) Outcome
}

type Context struct {
	Ctx context.Context
	S   *Server
}

// Outcome is what a handler did with an event. Everything but OutcomeHandled
// is a silent drop as far as the client is concerned.
type Outcome int

const (
	OutcomeHandled Outcome = iota
	OutcomeUnauthorized
	OutcomeInvalid
	OutcomeForbidden
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "failed"
	}
}

// OutcomeOf maps a service error onto an outcome.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeHandled
	}
	switch errs.Code(err).Code {
	case errs.ArgsError:
		return OutcomeInvalid
	case errs.UnauthorizedError:
		return OutcomeUnauthorized
	case errs.ForbiddenError:
		return OutcomeForbidden
	default:
		return OutcomeFailed
	}
}

// ChatRef names a conversation in join_chat, leave_chat and typing.
type ChatRef struct {
	Type   string `json:"type"`
	ID     *int64 `json:"id"`
	Typing bool   `json:"typing"`
}

// SendRequest is the send_message payload, also accepted by POST /api/messages.
type SendRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ReceiverID  *int64 `json:"receiver_id"`
	CommunityID *int64 `json:"community_id"`
	EventID     *int64 `json:"event_id"`
}

type TypingPayload struct {
	UserID   int64  `json:"user_id,string"`
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

type ConnectedPayload struct {
	Message string `json:"message"`
}

func UserRoom(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10)
}

// ChatRoom is the room a join_chat/leave_chat for kind and id refers to.
func ChatRoom(kind chatmodel.Kind, id int64) string {
	return string(kind) + "_" + strconv.FormatInt(id, 10)
}

// TypingRoom is where a typing indicator goes. Direct indicators go to the
// addressee's personal room rather than the direct_ room.
func TypingRoom(kind chatmodel.Kind, id int64) string {
	if kind == chatmodel.KindDirect {
		return UserRoom(id)
	}
	return ChatRoom(kind, id)
}
