package model

import "time"

// Community roles.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type CommunityMember struct {
	UserID      int64     `bson:"user_id" gorm:"primaryKey;autoIncrement:false" json:"user_id,string"`
	CommunityID int64     `bson:"community_id" gorm:"primaryKey;autoIncrement:false" json:"community_id,string"`
	Role        string    `bson:"role" gorm:"size:20;default:member" json:"role"`
	JoinedAt    time.Time `bson:"joined_at" json:"joined_at"`
}

func (CommunityMember) GetTableName() string { return "community_members" }

func (m CommunityMember) TableName() string { return m.GetTableName() }

type EventParticipant struct {
	UserID   int64     `bson:"user_id" gorm:"primaryKey;autoIncrement:false" json:"user_id,string"`
	EventID  int64     `bson:"event_id" gorm:"primaryKey;autoIncrement:false" json:"event_id,string"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

func (EventParticipant) GetTableName() string { return "event_participants" }

func (p EventParticipant) TableName() string { return p.GetTableName() }
