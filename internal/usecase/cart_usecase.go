package usecase

import (
	"context"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// サーバー側スナップショットが正。クライアントは全量PUTで同期する（last write wins）。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	variantRepo  repo.VariantRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	variantRepo repo.VariantRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		variantRepo:  variantRepo,
	}
}

// price は unit_price_snapshot（追加時点の価格）を返す。
// stock は現在値。画面側のクランプ表示に使う。
type CartItemResponse struct {
	ID          int64  `json:"id"`
	VariantID   int64  `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductSlug string `json:"product_slug"`
	VariantName string `json:"variant_name"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Image       string `json:"image"`
	Stock       int64  `json:"stock"`
	VendorID    int64  `json:"vendor_id"`
	VendorName  string `json:"vendor_name"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddCartInput struct {
	VariantID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

type SnapshotLine struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int64 `json:"quantity"`
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// AddToCart はカートに追加（同一バリアントは数量加算）。
// 合計数量は在庫でクランプする。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if in.VariantID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid variant_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid quantity")
	}

	// ACTIVEカート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	// バリアントチェック（公開のみ）
	d, err := u.variantRepo.FindDetailByID(ctx, in.VariantID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "variant not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !d.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "variant not found")
	}
	if d.Variant.Stock < 1 {
		return CartResponse{}, NewStockInsufficientError([]InvalidItem{{
			VariantID: in.VariantID,
			Requested: in.Quantity,
			Available: 0,
			Reason:    "out of stock",
		}})
	}

	// 既存数量を調べて在庫でクランプ
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	var existingQty int64 = 0
	for _, it := range items {
		if it.VariantID == in.VariantID {
			existingQty = it.Quantity
			break
		}
	}

	addQty := in.Quantity
	if existingQty+addQty > d.Variant.Stock {
		addQty = d.Variant.Stock - existingQty
	}
	if addQty <= 0 {
		//もう在庫いっぱいまで入っている
		return u.buildCartResponse(ctx, cart.ID)
	}

	// Upsert（同一バリアントは加算）
	// unit_price_snapshot は「追加時点の価格」を渡す
	if err := u.cartItemRepo.UpsertByCartAndVariant(ctx, cart.ID, in.VariantID, d.Variant.ProductID, addQty, d.Variant.Price); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更（所有チェック＋在庫クランプ）。0は削除扱い。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}
	if in.Quantity < 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid quantity")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !owned {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
	}

	//0は行削除
	if in.Quantity == 0 {
		return u.DeleteCartItem(ctx, userID, cartItemID)
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//在庫チェック（超えるぶんはクランプ）
	d, err := u.variantRepo.FindDetailByID(ctx, item.VariantID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "variant not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !d.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "variant not found")
	}

	qty := in.Quantity
	if qty > d.Variant.Stock {
		qty = d.Variant.Stock
	}
	if qty < 1 {
		return u.DeleteCartItem(ctx, userID, cartItemID)
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, qty); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//ACTIVEカートを取得して返却
	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !owned {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// スナップショット全量同期。同じ内容なら何度呼んでも同じ結果（冪等）。
// 消えたバリアント・非公開はスキップ。数量は[1, 在庫]にクランプ。
// 初回ログイン時のローカルカート持ち込みもこの1回のPUTで済む。
func (u *CartUsecase) ReplaceSnapshot(ctx context.Context, userID int64, lines []SnapshotLine) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if len(lines) > 100 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "too many lines")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//同一バリアントの重複行は数量を合算してから解決する
	merged := make([]SnapshotLine, 0, len(lines))
	index := make(map[int64]int)
	for _, ln := range lines {
		if ln.VariantID <= 0 || ln.Quantity <= 0 {
			continue
		}
		if i, ok := index[ln.VariantID]; ok {
			merged[i].Quantity += ln.Quantity
			continue
		}
		index[ln.VariantID] = len(merged)
		merged = append(merged, ln)
	}

	items := make([]model.CartItem, 0, len(merged))
	for _, ln := range merged {
		d, err := u.variantRepo.FindDetailByID(ctx, ln.VariantID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !d.IsActive || d.Variant.Stock < 1 {
			continue
		}

		qty := ln.Quantity
		if qty > d.Variant.Stock {
			qty = d.Variant.Stock
		}

		items = append(items, model.CartItem{
			VariantID:         ln.VariantID,
			ProductID:         d.Variant.ProductID,
			Quantity:          qty,
			UnitPriceSnapshot: d.Variant.Price,
		})
	}

	if err := u.cartItemRepo.ReplaceAll(ctx, cart.ID, items); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	var total int64 = 0

	for _, it := range items {
		d, err := u.variantRepo.FindDetailByID(ctx, it.VariantID)
		if err != nil {
			continue
		}
		if !d.IsActive {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ID:          it.ID,
			VariantID:   it.VariantID,
			ProductID:   it.ProductID,
			ProductName: d.ProductName,
			ProductSlug: d.ProductSlug,
			VariantName: d.Variant.Name,
			Price:       it.UnitPriceSnapshot,
			Quantity:    it.Quantity,
			Image:       d.ImageURL,
			Stock:       d.Variant.Stock,
			VendorID:    d.VendorID,
			VendorName:  d.VendorName,
		})

		total += it.UnitPriceSnapshot * it.Quantity
	}

	return CartResponse{Items: respItems, Total: total}, nil
}
