package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// CheckoutUsecase はカート→複数ベンダー注文の確定処理。
// 検証（ValidateCheckout）は参考値。正しさはトランザクション内の
// 条件付き在庫減算（0行更新＝不足）だけが保証する。
type CheckoutUsecase struct {
	tx          repo.TransactionManager
	addressRepo repo.AddressRepository
	userRepo    repo.UserRepository

	//ベンダーごとに1回かかる送料
	shippingFeePerVendor int64
	//プラットフォーム手数料率（bps）
	platformFeeBps int64
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	addressRepo repo.AddressRepository,
	userRepo repo.UserRepository,
	shippingFeePerVendor int64,
	platformFeeBps int64,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:                   tx,
		addressRepo:          addressRepo,
		userRepo:             userRepo,
		shippingFeePerVendor: shippingFeePerVendor,
		platformFeeBps:       platformFeeBps,
	}
}

type CheckoutValidation struct {
	IsValid      bool          `json:"is_valid"`
	InvalidItems []InvalidItem `json:"invalid_items"`
}

type CheckoutPreview struct {
	Groups []VendorGroup `json:"groups"`
	Total  int64         `json:"total"`
}

type PlaceOrdersInput struct {
	AddressID      int64
	PaymentMethod  string
	CouponCode     string
	IdempotencyKey string
	//空なら全行。指定があればその行だけ注文し、残りはカートに残す。
	VariantIDs []int64
}

type CheckoutOutput struct {
	Orders []OrderOutput `json:"orders"`
}

// 確定前の事前チェック。行ごとに現在の在庫・存在を見る。
// auto-correctはしない。直すかどうかはユーザーに聞く。
func (u *CheckoutUsecase) ValidateCheckout(ctx context.Context, userID int64) (CheckoutValidation, error) {
	if userID <= 0 {
		return CheckoutValidation{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	var out CheckoutValidation

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			out = CheckoutValidation{IsValid: true, InvalidItems: []InvalidItem{}}
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		_, invalid, err := resolveLines(ctx, r, items)
		if err != nil {
			return err
		}

		out = CheckoutValidation{
			IsValid:      len(invalid) == 0,
			InvalidItems: invalid,
		}
		return nil
	})

	if err != nil {
		return CheckoutValidation{}, err
	}
	return out, nil
}

// チェックアウト画面用のグループ・金額計算。保存しない。毎回作り直す。
func (u *CheckoutUsecase) GetCheckoutPreview(ctx context.Context, userID int64, couponCode string) (CheckoutPreview, error) {
	if userID <= 0 {
		return CheckoutPreview{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	var out CheckoutPreview

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			out = CheckoutPreview{Groups: []VendorGroup{}}
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		lines, _, err := resolveLines(ctx, r, items)
		if err != nil {
			return err
		}

		var discountPercent int64 = 0
		if strings.TrimSpace(couponCode) != "" {
			c, err := u.resolveCoupon(ctx, r, userID, couponCode)
			if err != nil {
				return err
			}
			discountPercent = c.DiscountPercent
		}

		groups := GroupItemsByVendor(lines)
		var total int64 = 0
		for i := range groups {
			CalculateGroupTotals(&groups[i], u.shippingFeePerVendor, u.platformFeeBps, discountPercent)
			total += groups[i].Total
		}

		out = CheckoutPreview{Groups: groups, Total: total}
		return nil
	})

	if err != nil {
		return CheckoutPreview{}, err
	}
	return out, nil
}

// 注文確定。全ベンダー分を1トランザクションで作る（all-or-nothing）。
// 在庫が1行でも足りなければ全部ロールバックし、足りない行を返す。
func (u *CheckoutUsecase) PlaceOrders(ctx context.Context, userID int64, in PlaceOrdersInput) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid address_id")
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" || len(method) > 50 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid payment_method")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid idempotency_key")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addressRepo.FindByID(ctx, in.AddressID)
	if err == repo.ErrNotFound {
		return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "address not found")
	}
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	//他人の住所なら403
	if addr.UserID != userID {
		return CheckoutOutput{}, NewHTTPError(http.StatusForbidden, CodeForbidden, "forbidden")
	}

	var out CheckoutOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ注文群を返す
		existing, err := r.Orders().ListByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if len(existing) > 0 {
			outs, err := ordersToOutputs(ctx, r, existing)
			if err != nil {
				return err
			}
			out = CheckoutOutput{Orders: outs}
			return nil
		}

		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, CodeValidation, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//部分チェックアウト：指定行だけ。残りはカートに残す。
		cartItems = filterByVariantIDs(cartItems, in.VariantIDs)
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, CodeValidation, "cart empty")
		}

		//確定時の再検証（check-then-actの穴はここで塞ぐ）
		lines, invalid, err := resolveLines(ctx, r, cartItems)
		if err != nil {
			return err
		}
		if len(invalid) > 0 {
			return NewStockInsufficientError(invalid)
		}

		//クーポン（割引率はグループごとに独立適用）
		var discountPercent int64 = 0
		if strings.TrimSpace(in.CouponCode) != "" {
			c, err := u.resolveCoupon(ctx, r, userID, in.CouponCode)
			if err != nil {
				return err
			}
			discountPercent = c.DiscountPercent
		}

		//在庫減算。0行更新＝他の誰かが先に買った。全体を巻き戻す。
		for _, ln := range lines {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ln.VariantID, ln.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			if !ok {
				available := int64(0)
				if v, err := r.Variants().FindByID(ctx, ln.VariantID); err == nil {
					available = v.Stock
				}
				return NewStockInsufficientError([]InvalidItem{{
					VariantID: ln.VariantID,
					Requested: ln.Quantity,
					Available: available,
					Reason:    "insufficient stock",
				}})
			}
		}

		//ベンダーごとに分割して金額確定
		groups := GroupItemsByVendor(lines)
		for i := range groups {
			CalculateGroupTotals(&groups[i], u.shippingFeePerVendor, u.platformFeeBps, discountPercent)
		}

		//グループごとに注文作成
		now := time.Now()
		outs := make([]OrderOutput, 0, len(groups))
		orderedVariantIDs := make([]int64, 0, len(lines))

		for _, g := range groups {
			order := model.Order{
				OrderNumber:    newOrderNumber(now),
				UserID:         userID,
				VendorID:       g.VendorID,
				AddressID:      in.AddressID,
				Status:         model.OrderStatusPending,
				PaymentStatus:  model.PaymentStatusUnpaid,
				PaymentMethod:  method,
				Subtotal:       g.Subtotal,
				ShippingFee:    g.ShippingFee,
				Commission:     g.Commission,
				Discount:       g.Discount,
				Total:          g.Total,
				IdempotencyKey: key,
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			orderID, err := r.Orders().Create(ctx, order)
			if err != nil {
				//同時に同じキーが入った等。ロールバック後に再送すれば既存が返る。
				return NewHTTPError(http.StatusConflict, CodeConflict, "idempotency conflict")
			}
			order.ID = orderID

			orderItems := make([]model.OrderItem, 0, len(g.Items))
			for _, ln := range g.Items {
				orderItems = append(orderItems, model.OrderItem{
					VariantID:           ln.VariantID,
					ProductID:           ln.ProductID,
					ProductNameSnapshot: ln.ProductName,
					VariantNameSnapshot: ln.VariantName,
					UnitPriceSnapshot:   ln.UnitPrice,
					Quantity:            ln.Quantity,
					CreatedAt:           now,
				})
				orderedVariantIDs = append(orderedVariantIDs, ln.VariantID)
			}

			if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}

			outs = append(outs, toOrderOutput(order, orderItems))
		}

		//注文した行だけカートから消す。残り行はそのまま。
		if err := r.CartItems().DeleteByCartAndVariantIDs(ctx, cart.ID, orderedVariantIDs); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		remaining, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if len(remaining) == 0 {
			if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
		}

		out = CheckoutOutput{Orders: outs}
		return nil
	})

	if err != nil {
		return CheckoutOutput{}, err
	}
	return out, nil
}

// カート明細をチェックアウト行に解決する。
// 消えた・非公開・在庫不足の行はinvalidに集める（自動補正しない）。
func resolveLines(ctx context.Context, r repo.TxRepos, items []model.CartItem) ([]CheckoutLine, []InvalidItem, error) {
	lines := make([]CheckoutLine, 0, len(items))
	invalid := make([]InvalidItem, 0)

	for _, it := range items {
		d, err := r.Variants().FindDetailByID(ctx, it.VariantID)
		if err == repo.ErrNotFound {
			invalid = append(invalid, InvalidItem{
				VariantID: it.VariantID,
				Requested: it.Quantity,
				Available: 0,
				Reason:    "variant unavailable",
			})
			continue
		}
		if err != nil {
			return nil, nil, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !d.IsActive {
			invalid = append(invalid, InvalidItem{
				VariantID: it.VariantID,
				Requested: it.Quantity,
				Available: 0,
				Reason:    "variant unavailable",
			})
			continue
		}
		if d.Variant.Stock < it.Quantity {
			invalid = append(invalid, InvalidItem{
				VariantID: it.VariantID,
				Requested: it.Quantity,
				Available: d.Variant.Stock,
				Reason:    "insufficient stock",
			})
			continue
		}

		//請求に使う単価はスナップショットではなく現在値
		lines = append(lines, CheckoutLine{
			VariantID:   it.VariantID,
			ProductID:   d.Variant.ProductID,
			ProductName: d.ProductName,
			VariantName: d.Variant.Name,
			VendorID:    d.VendorID,
			VendorName:  d.VendorName,
			UnitPrice:   d.Variant.Price,
			Quantity:    it.Quantity,
		})
	}

	return lines, invalid, nil
}

// クーポン解決＋適用可否チェック（tx内で呼ぶ）
func (u *CheckoutUsecase) resolveCoupon(ctx context.Context, r repo.TxRepos, userID int64, code string) (model.Coupon, error) {
	c, err := r.Coupons().FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err == repo.ErrNotFound {
		return model.Coupon{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "coupon not found")
	}
	if err != nil {
		return model.Coupon{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	priorOrders, err := r.Orders().CountByUserID(ctx, userID)
	if err != nil {
		return model.Coupon{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return model.Coupon{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if err != nil {
		return model.Coupon{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	if err := checkCouponEligibility(c, time.Now(), priorOrders, user.Plan == model.PlanMember); err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

func filterByVariantIDs(items []model.CartItem, variantIDs []int64) []model.CartItem {
	if len(variantIDs) == 0 {
		return items
	}
	wanted := make(map[int64]bool, len(variantIDs))
	for _, id := range variantIDs {
		wanted[id] = true
	}
	filtered := make([]model.CartItem, 0, len(items))
	for _, it := range items {
		if wanted[it.VariantID] {
			filtered = append(filtered, it)
		}
	}
	return filtered
}

func ordersToOutputs(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

// 注文番号：UTC時刻＋ランダム8桁。中央の採番なしで衝突をほぼゼロに。
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ORD-" + now.UTC().Format("20060102150405") + "-" + suffix
}
