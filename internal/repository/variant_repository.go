package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// カート表示やチェックアウト検証で使う読み取りモデル。
// バリアントに商品・ベンダー情報を結合したもの。
type VariantDetail struct {
	Variant     model.ProductVariant
	ProductName string
	ProductSlug string
	ImageURL    string
	//商品・バリアント両方が公開中のときだけtrue
	IsActive   bool
	VendorID   int64
	VendorName string
}

// バリアントの永続化（取得）だけを約束。
type VariantRepository interface {
	FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error)

	//商品・ベンダーを結合して1件取得
	FindDetailByID(ctx context.Context, variantID int64) (VariantDetail, error)

	//バリアントがそのベンダーの商品かを確認
	IsOwnedByVendor(ctx context.Context, variantID int64, vendorID int64) (bool, error)
}
