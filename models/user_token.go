package models

import "time"

// UserToken stores refresh tokens issued at login. Revoked rows are kept for
// audit.
type UserToken struct {
	TokenID   int       `gorm:"primaryKey;column:token_id" json:"token_id"`
	UserID    int       `gorm:"column:user_id" json:"user_id"`
	Token     string    `gorm:"column:token;unique" json:"-"`
	TokenType string    `gorm:"column:token_type" json:"token_type"`
	IsRevoked bool      `gorm:"column:is_revoked" json:"is_revoked"`
	ExpiresAt time.Time `gorm:"column:expires_at" json:"expires_at"`
	CreateAt  time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt  time.Time `gorm:"column:update_at" json:"update_at"`
}

func (UserToken) TableName() string {
	return "user_tokens"
}
