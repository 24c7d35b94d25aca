package handlers

import "GVChat/service/chat"

// Register installs every chat event handler on s.
func Register(s *chat.Server) {
	d := s.Disp()
	d.Register(NewConnectHandler())
	d.Register(NewDisconnectHandler())
	d.Register(NewJoinHandler())
	d.Register(NewLeaveHandler())
	d.Register(NewSendHandler())
	d.Register(NewTypingHandler())
}
