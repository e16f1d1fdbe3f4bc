package model

import "time"

type Role string

const (
	RoleUser   Role = "USER"
	RoleVendor Role = "VENDOR"
	RoleAdmin  Role = "ADMIN"
)

type Plan string

const (
	PlanFree   Plan = "FREE"
	PlanMember Plan = "MEMBER"
)

// 認証（トークン発行）は外部サービス側。ここでは参照のみ。
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"uniqueIndex;not null"`
	Role      Role   `gorm:"type:varchar(20);not null;default:'USER'"`
	Plan      Plan   `gorm:"type:varchar(20);not null;default:'FREE'"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
