package model

import "time"

// クーポン。コードは大文字で保存し、照合は大文字に正規化してから行う。
// 期限切れの削除は外部の定期ジョブがやる。
type Coupon struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	Code string `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`

	//サブトータルに対する割引率（0〜100）。送料には掛けない。
	DiscountPercent int64 `gorm:"not null" json:"discount_percent"`

	Description string `gorm:"type:varchar(255)" json:"description"`

	//expires_at ちょうども期限切れ扱い。
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	IsPublic   bool `gorm:"not null;default:false" json:"is_public"`
	ForNewUser bool `gorm:"not null;default:false" json:"for_new_user"`
	ForMember  bool `gorm:"not null;default:false" json:"for_member"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
