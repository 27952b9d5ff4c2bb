package models

import "time"

// Comment represents a reply attached to a post
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Text      string    `gorm:"type:varchar(5000);not null;column:text"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	AuthorID  int64     `gorm:"not null;column:author_id"`
	PostID    int64     `gorm:"not null;column:post_id"`

	// Relationships
	Author *User `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
	Post   *Post `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "inklet_comments"
}

// OwnerID returns the owning author, satisfying the mutation guard
func (c *Comment) OwnerID() int64 {
	return c.AuthorID
}
