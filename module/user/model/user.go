package model

import "time"

// User is the directory record of a member of the network. Only the fields
// the chat gateway reads or writes are mapped.
type User struct {
	ID           int64     `bson:"_id" gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Username     string    `bson:"username" gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email        string    `bson:"email" gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string    `bson:"password_hash" gorm:"size:255;not null" json:"-"`
	DisplayName  string    `bson:"display_name,omitempty" gorm:"size:100" json:"display_name"`
	Bio          string    `bson:"bio,omitempty" gorm:"type:text" json:"bio"`
	AvatarURL    string    `bson:"avatar_url,omitempty" gorm:"size:255" json:"avatar_url"`
	IsOnline     bool      `bson:"is_online" json:"is_online"`
	LastSeen     time.Time `bson:"last_seen" json:"last_seen"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

func (User) GetTableName() string { return "users" }

// TableName is read by gorm.
func (u User) TableName() string { return u.GetTableName() }

// Name is what other users see: the display name, else the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Summary is the public projection embedded in messages and conversations.
type Summary struct {
	ID          int64     `json:"id,string"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	IsOnline    bool      `json:"is_online"`
	LastSeen    time.Time `json:"last_seen"`
}

func (u *User) Summary() *Summary {
	if u == nil {
		return nil
	}
	return &Summary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsOnline:    u.IsOnline,
		LastSeen:    u.LastSeen,
	}
}
