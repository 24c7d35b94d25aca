package service

import (
	"context"
	"strings"
	"time"

	"GVChat/data/database"
	"GVChat/logger"
	usermodel "GVChat/module/user/model"
	"GVChat/tools/errs"
	"GVChat/tools/ids"
	jwtlib "GVChat/tools/security"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ConnCounter reports how many live sockets a user has across the cluster.
type ConnCounter interface {
	Count(ctx context.Context, userID int64) (int64, error)
}

type RegisterParams struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginParams struct {
	// Username may also be the email address.
	Username string `json:"username"`
	Password string `json:"password"`
}

type Session struct {
	User     *usermodel.User `json:"user"`
	Token    string          `json:"token"`
	ExpireAt time.Time       `json:"expire_at"`
}

type Presence struct {
	UserID      int64     `json:"user_id,string"`
	IsOnline    bool      `json:"is_online"`
	LastSeen    time.Time `json:"last_seen"`
	Connections *int64    `json:"connections,omitempty"`
}

type UserService struct {
	users database.Users
	jwt   jwtlib.Options
	conns ConnCounter
	cost  int
	now   func() time.Time
}

func NewUserService(users database.Users, jwt jwtlib.Options, conns ConnCounter) *UserService {
	return &UserService{users: users, jwt: jwt, conns: conns, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register creates an account and signs the new user in.
func (s *UserService) Register(ctx context.Context, in RegisterParams) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, errs.ErrArgs.WrapMsg("username, email and password are required")
	}
	for _, login := range []string{in.Username, in.Email} {
		_, err := s.users.FindByLogin(ctx, login)
		if err == nil {
			return nil, errs.ErrRecordExist.WrapMsg("username or email taken", "login", login)
		}
		if !errs.ErrRecordNotFound.Is(err) {
			return nil, err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("unusable password: " + err.Error())
	}
	now := s.now().UTC()
	u := &usermodel.User{
		ID:           ids.Generate(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		LastSeen:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u, now)
}

// Login checks the password and marks the user online.
func (s *UserService) Login(ctx context.Context, in LoginParams) (*Session, error) {
	login := strings.TrimSpace(in.Username)
	if login == "" || in.Password == "" {
		return nil, errs.ErrArgs.WrapMsg("username and password are required")
	}
	u, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return nil, errs.ErrUnauthorized.WrapMsg("invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, errs.ErrUnauthorized.WrapMsg("invalid credentials")
	}
	now := s.now().UTC()
	if err := s.users.SetOnline(ctx, u.ID, true, now); err != nil {
		return nil, err
	}
	u.IsOnline, u.LastSeen = true, now
	logger.Info("user logged in", zap.Int64("user", u.ID))
	return s.issue(u, now)
}

// Logout marks the user offline. Open sockets are left alone.
func (s *UserService) Logout(ctx context.Context, userID int64) error {
	return s.users.SetOnline(ctx, userID, false, s.now().UTC())
}

func (s *UserService) Me(ctx context.Context, userID int64) (*usermodel.User, error) {
	return s.users.Get(ctx, userID)
}

// Presence reads the directory flag and, when a counter is wired, the live
// socket count.
func (s *UserService) Presence(ctx context.Context, userID int64) (*Presence, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Presence{UserID: u.ID, IsOnline: u.IsOnline, LastSeen: u.LastSeen}
	if s.conns != nil {
		n, err := s.conns.Count(ctx, userID)
		if err != nil {
			logger.Warn("presence count", zap.Int64("user", userID), zap.Error(err))
		} else {
			p.Connections = &n
		}
	}
	return p, nil
}

// VerifyToken resolves a session token to its user id.
func (s *UserService) VerifyToken(token string) (int64, error) {
	uid, err := jwtlib.UserID(s.jwt, token)
	if err != nil {
		return 0, errs.ErrUnauthorized.WrapMsg(err.Error())
	}
	return uid, nil
}

func (s *UserService) issue(u *usermodel.User, now time.Time) (*Session, error) {
	token, exp, err := jwtlib.Issue(s.jwt, u.ID, now)
	if err != nil {
		return nil, errs.ErrInternal.WrapMsg("issue token: " + err.Error())
	}
	return &Session{User: u, Token: token, ExpireAt: exp}, nil
}
