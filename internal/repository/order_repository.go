package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	ListByVendorID(ctx context.Context, vendorID int64, f OrderListFilter) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//新規ユーザー判定（クーポン）に使う
	CountByUserID(ctx context.Context, userID int64) (int64, error)

	//同じキーなら同じ注文群を返す（1チェックアウト＝複数注文）
	ListByIdempotencyKey(ctx context.Context, userID int64, key string) ([]model.Order, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
}
