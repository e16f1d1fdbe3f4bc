package repository

import (
	"app/internal/domain/model"
	"context"
)

type VendorRepository interface {
	FindByID(ctx context.Context, vendorID int64) (model.Vendor, error)

	//ログイン中ユーザーからベンダーを引く（ベンダー画面用）
	FindByUserID(ctx context.Context, userID int64) (model.Vendor, error)
}
