package models

import (
	"database/sql"
	"time"
)

// User represents a registered account
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Username     string         `gorm:"type:varchar(150);not null;uniqueIndex:inklet_users_ux1;column:username"`
	DisplayName  sql.NullString `gorm:"type:varchar(150);column:display_name"`
	Email        sql.NullString `gorm:"type:varchar(254);column:email"`
	PasswordHash string         `gorm:"type:varchar(128);not null;column:password_hash"`
	CreatedAt    time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "inklet_users"
}
