package repository

import (
	"context"

	"app/internal/domain/model"
)

// クーポンの保存・取得の約束。照合側でコードを大文字に正規化してから渡す。
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)

	//公開クーポンの一覧（期限切れは除く）
	ListPublic(ctx context.Context) ([]model.Coupon, error)
}
