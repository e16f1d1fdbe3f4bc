package repository

import (
	"app/internal/domain/model"
	"context"
)

// 取得だけを約束（作成・更新は外部の認証サービス側）
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
}
