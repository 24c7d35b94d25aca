package model

import "time"

const TypeMessage = "message"

type Notification struct {
	ID               int64     `bson:"_id" gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID           int64     `bson:"user_id" gorm:"index;not null" json:"user_id,string"`
	Title            string    `bson:"title" gorm:"size:200;not null" json:"title"`
	Content          string    `bson:"content" gorm:"type:text" json:"content"`
	NotificationType string    `bson:"notification_type" gorm:"size:50" json:"notification_type"`
	RelatedID        *int64    `bson:"related_id,omitempty" json:"related_id,string,omitempty"`
	IsRead           bool      `bson:"is_read" json:"is_read"`
	CreatedAt        time.Time `bson:"created_at" gorm:"index" json:"created_at"`
}

func (Notification) GetTableName() string { return "notifications" }

func (n Notification) TableName() string { return n.GetTableName() }
