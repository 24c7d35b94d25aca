package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"GVChat/logger"
	chatmodel "GVChat/module/chat/model"
	usermodel "GVChat/module/user/model"
	"GVChat/tools/errs"
	"GVChat/tools/ids"

	"go.uber.org/zap"
)

// Directory is the slice of the user directory the chat core needs.
type Directory interface {
	Get(ctx context.Context, id int64) (*usermodel.User, error)
	SetOnline(ctx context.Context, id int64, online bool, at time.Time) error
	IsCommunityMember(ctx context.Context, userID, communityID int64) (bool, error)
	IsEventParticipant(ctx context.Context, userID, eventID int64) (bool, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *chatmodel.ChatMessage) error
}

// EventSink is told about every persisted message, after it was broadcast.
type EventSink interface {
	MessageCreated(ctx context.Context, m *chatmodel.ChatMessage) error
}

// Relay carries room frames to the other gateway nodes.
type Relay interface {
	Publish(ctx context.Context, env *RelayEnvelope) error
}

// RelayEnvelope is one room frame in flight between nodes.
type RelayEnvelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Except string          `json:"except,omitempty"`
	Frame  json.RawMessage `json:"frame"`
}

// JoinPolicy decides who may join community, event and direct rooms.
type JoinPolicy string

const (
	// JoinOpen lets any authenticated user join any room.
	JoinOpen JoinPolicy = "open"
	// JoinMembership requires community membership or event participation;
	// direct rooms need an existing user id.
	JoinMembership JoinPolicy = "membership"
)

func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch JoinPolicy(s) {
	case "", JoinOpen:
		return JoinOpen, nil
	case JoinMembership:
		return JoinMembership, nil
	}
	return "", errs.ErrArgs.WrapMsg("unknown join policy", "policy", s)
}

type Config struct {
	NodeID         string
	JoinPolicy     JoinPolicy
	PresencePolicy PresencePolicy
	SendQueue      int
}

type Deps struct {
	Directory Directory
	Messages  MessageStore
	Counter   ConnCounter
	Sink      EventSink
	Relay     Relay
}

// Server is the chat session core: it owns the room registry and the
// presence tracker and runs inbound events through the dispatcher.
type Server struct {
	conf     Config
	reg      *Registry
	presence *Tracker
	disp     *Dispatcher
	dir      Directory
	msgs     MessageStore
	sink     EventSink
	relay    Relay
	metrics  *Metrics
	now      func() time.Time
}

func NewServer(conf Config, deps Deps) *Server {
	if conf.JoinPolicy == "" {
		conf.JoinPolicy = JoinOpen
	}
	if conf.SendQueue <= 0 {
		conf.SendQueue = 256
	}
	reg := NewRegistry()
	return &Server{
		conf:     conf,
		reg:      reg,
		presence: NewTracker(deps.Directory, reg, conf.PresencePolicy, deps.Counter),
		disp:     NewDispatcher(),
		dir:      deps.Directory,
		msgs:     deps.Messages,
		sink:     deps.Sink,
		relay:    deps.Relay,
		metrics:  NewMetrics(),
		now:      time.Now,
	}
}

func (s *Server) Registry() *Registry         { return s.reg }
func (s *Server) Presence() *Tracker          { return s.presence }
func (s *Server) Disp() *Dispatcher           { return s.disp }
func (s *Server) Directory() Directory        { return s.dir }
func (s *Server) Config() Config              { return s.conf }
func (s *Server) NewConn(remote string) *Conn { return NewConn(s.conf.SendQueue, remote) }

// SetRelay attaches the cross-node relay once it is connected.
func (s *Server) SetRelay(r Relay) { s.relay = r }

// SetSink attaches the message event sink once it is connected.
func (s *Server) SetSink(sink EventSink) { s.sink = sink }

// Dispatch runs one inbound event and records its outcome.
func (s *Server) Dispatch(ctx context.Context, c *Conn, event string, data []byte) Outcome {
	out := s.disp.Dispatch(&Context{Ctx: ctx, S: s}, c, event, data)
	s.metrics.Event(event, out)
	if out != OutcomeHandled {
		logger.Debug("event dropped", zap.String("event", event), zap.String("conn", c.ID()), zap.Stringer("outcome", out))
	}
	return out
}

// Emit broadcasts to a room on this node and relays it to the others.
func (s *Server) Emit(ctx context.Context, room, event string, payload any, except *Conn) int {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Error("emit encode", zap.String("room", room), zap.Error(err))
		return 0
	}
	exceptID := ""
	if except != nil {
		exceptID = except.ID()
	}
	n := s.reg.deliver(room, frame, exceptID)

	if s.relay != nil {
		env := &RelayEnvelope{Origin: s.conf.NodeID, Room: room, Except: exceptID, Frame: frame}
		if err := s.relay.Publish(ctx, env); err != nil {
			logger.Warn("relay publish", zap.String("room", room), zap.Error(err))
		} else {
			s.metrics.Relayed("out")
		}
	}
	return n
}

// DeliverRemote hands a frame relayed by another node to local members.
// Frames this node published itself are ignored.
func (s *Server) DeliverRemote(env *RelayEnvelope) int {
	if env == nil || env.Origin == s.conf.NodeID || env.Room == "" {
		return 0
	}
	s.metrics.Relayed("in")
	return s.reg.deliver(env.Room, env.Frame, env.Except)
}

// Authorize applies the join policy to userID entering kind/id.
func (s *Server) Authorize(ctx context.Context, userID int64, kind chatmodel.Kind, id int64) error {
	if s.conf.JoinPolicy != JoinMembership {
		return nil
	}
	var (
		ok  bool
		err error
	)
	switch kind {
	case chatmodel.KindCommunity:
		ok, err = s.dir.IsCommunityMember(ctx, userID, id)
	case chatmodel.KindEvent:
		ok, err = s.dir.IsEventParticipant(ctx, userID, id)
	case chatmodel.KindDirect:
		if id == userID {
			return nil
		}
		_, err = s.dir.Get(ctx, id)
		if errs.ErrRecordNotFound.Is(err) {
			return errs.ErrForbidden.WrapMsg("no such user", "user", id)
		}
		ok = err == nil
	}
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrForbidden.WrapMsg("not a member", "user", userID, "type", kind, "id", id)
	}
	return nil
}

// Send validates, persists and broadcasts a message from senderID. Nothing
// is broadcast unless the store accepted the message.
func (s *Server) Send(ctx context.Context, senderID int64, req *SendRequest) (*chatmodel.ChatMessage, error) {
	kind, ok := chatmodel.ParseKind(req.MessageType)
	if !ok {
		return nil, errs.ErrArgs.WrapMsg("unknown message type", "type", req.MessageType)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errs.ErrArgs.WrapMsg("empty content")
	}
	m := &chatmodel.ChatMessage{
		ID:          ids.Generate(),
		Content:     req.Content,
		SenderID:    senderID,
		ReceiverID:  req.ReceiverID,
		CommunityID: req.CommunityID,
		EventID:     req.EventID,
		MessageType: kind,
		CreatedAt:   s.now().UTC(),
	}
	m.Normalize()

	target, hasTarget := m.Target()
	if kind != chatmodel.KindDirect {
		if !hasTarget {
			return nil, errs.ErrArgs.WrapMsg("missing target", "type", kind)
		}
		if err := s.Authorize(ctx, senderID, kind, target); err != nil {
			return nil, err
		}
	}

	if err := s.msgs.Create(ctx, m); err != nil {
		if errs.ErrPersistence.Is(err) {
			return nil, err
		}
		return nil, errs.ErrPersistence.WrapMsg(err.Error(), "id", m.ID)
	}

	s.enrich(ctx, m)

	switch kind {
	case chatmodel.KindDirect:
		s.Emit(ctx, UserRoom(senderID), EventNewMessage, m, nil)
		if hasTarget && target != senderID {
			s.Emit(ctx, UserRoom(target), EventNewMessage, m, nil)
		}
	default:
		s.Emit(ctx, ChatRoom(kind, target), EventNewMessage, m, nil)
	}

	if s.sink != nil {
		if err := s.sink.MessageCreated(ctx, m); err != nil {
			logger.Warn("message event", zap.Int64("id", m.ID), zap.Error(err))
		}
	}
	return m, nil
}

// enrich embeds sender and receiver summaries; lookup failures leave them nil.
func (s *Server) enrich(ctx context.Context, m *chatmodel.ChatMessage) {
	if u, err := s.dir.Get(ctx, m.SenderID); err == nil {
		m.Sender = u.Summary()
	} else {
		logger.Warn("sender lookup", zap.Int64("user", m.SenderID), zap.Error(err))
	}
	if m.ReceiverID != nil {
		if u, err := s.dir.Get(ctx, *m.ReceiverID); err == nil {
			m.Receiver = u.Summary()
		}
	}
}
