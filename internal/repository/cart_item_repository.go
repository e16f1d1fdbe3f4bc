package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一バリアントは数量加算
	UpsertByCartAndVariant(ctx context.Context, cartID int64, variantID int64, productID int64, addQty int64, unitPriceSnapshot int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)

	//スナップショット同期用。カートの明細を丸ごと入れ替える（last write wins）。
	ReplaceAll(ctx context.Context, cartID int64, items []model.CartItem) error

	//注文済みの行だけを消す（部分チェックアウト対応）。
	DeleteByCartAndVariantIDs(ctx context.Context, cartID int64, variantIDs []int64) error
}
