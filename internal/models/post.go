package models

import (
	"database/sql"
	"time"
)

// Post represents a published entry. CreatedAt is set once at creation and
// never changes on edit; ordering is newest-first on this column.
type Post struct {
	ID        int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Text      string         `gorm:"type:text;not null;column:text"`
	CreatedAt time.Time      `gorm:"not null;index:inklet_posts_ix1,sort:desc;column:created_at"`
	Image     sql.NullString `gorm:"type:varchar(255);column:image"`
	AuthorID  int64          `gorm:"not null;column:author_id"`
	GroupID   sql.NullInt64  `gorm:"column:group_id"`

	// Relationships
	Author *User  `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
	Group  *Group `gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:SET NULL"`

	// Comments eagerly loaded for the detail view
	Comments []Comment `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "inklet_posts"
}

// OwnerID returns the owning author, satisfying the mutation guard
func (p *Post) OwnerID() int64 {
	return p.AuthorID
}
