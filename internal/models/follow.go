package models

import "time"

// Follow represents a directed follower -> author edge. The composite
// primary key makes the pair unique by construction.
type Follow struct {
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	AuthorID  int64     `gorm:"primaryKey;column:author_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	User   *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Author *User `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "inklet_follows"
}
