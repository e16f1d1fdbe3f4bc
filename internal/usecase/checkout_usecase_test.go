package usecase

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCheckoutUC(tx *fakeTxManager, addressRepo *MockAddressRepo, userRepo *MockUserRepo) *CheckoutUsecase {
	//送料30000/ベンダー、手数料10%（1000bps）
	return NewCheckoutUsecase(tx, addressRepo, userRepo, 30000, 1000)
}

func ownedAddress(addressID, userID int64) model.Address {
	return model.Address{ID: addressID, UserID: userID}
}

// =====================
// ValidateCheckout
// =====================

// カートが無い＝空で有効
func TestValidateCheckout_NoCart(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}

	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{}, repo.ErrNotFound)

	uc := newCheckoutUC(tx, new(MockAddressRepo), new(MockUserRepo))

	out, err := uc.ValidateCheckout(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, out.IsValid)
	assert.Equal(t, 0, len(out.InvalidItems))
}

// 不足行は行単位で返す。自動補正はしない。
func TestValidateCheckout_ReportsShortfallPerLine(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}

	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 2},
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil)

	//100は在庫1しかない。200は問題なし。
	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 1, 1000, 1), nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(200)).Return(activeDetail(200, 20, 2, 2000, 9), nil)

	uc := newCheckoutUC(tx, new(MockAddressRepo), new(MockUserRepo))

	out, err := uc.ValidateCheckout(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, out.IsValid)
	assert.Equal(t, 1, len(out.InvalidItems))
	assert.Equal(t, int64(100), out.InvalidItems[0].VariantID)
	assert.Equal(t, int64(2), out.InvalidItems[0].Requested)
	assert.Equal(t, int64(1), out.InvalidItems[0].Available)
}

// 消えたバリアントはvariant unavailable
func TestValidateCheckout_MissingVariant(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}

	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 1},
	}, nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(repo.VariantDetail{}, repo.ErrNotFound)

	uc := newCheckoutUC(tx, new(MockAddressRepo), new(MockUserRepo))

	out, err := uc.ValidateCheckout(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, out.IsValid)
	assert.Equal(t, "variant unavailable", out.InvalidItems[0].Reason)
}

// =====================
// PlaceOrders
// =====================

// 2ベンダー→2注文が1トランザクションで作られる
func TestPlaceOrders_MultiVendorSuccess(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}
	addrRepo := new(MockAddressRepo)

	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 1), nil)

	r.orders.On("ListByIdempotencyKey", mock.Anything, int64(1), "key-1").Return([]model.Order{}, nil)
	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 2},
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil).Once()

	//ベンダー10: 100000×2 / ベンダー20: 50000×1
	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 10, 100000, 5), nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(200)).Return(activeDetail(200, 20, 20, 50000, 5), nil)

	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(200), int64(1)).Return(true, nil)

	//subtotal 200000 + 送料30000 = 230000
	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.VendorID == 10 &&
			o.Subtotal == 200000 &&
			o.ShippingFee == 30000 &&
			o.Commission == 20000 &&
			o.Total == 230000 &&
			o.Status == model.OrderStatusPending &&
			o.PaymentStatus == model.PaymentStatusUnpaid &&
			o.IdempotencyKey == "key-1" &&
			strings.HasPrefix(o.OrderNumber, "ORD-")
	})).Return(int64(501), nil)

	//subtotal 50000 + 送料30000 = 80000
	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.VendorID == 20 && o.Subtotal == 50000 && o.Total == 80000
	})).Return(int64(502), nil)

	r.orderItems.On("CreateBulk", mock.Anything, int64(501), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].VariantID == 100 && items[0].Quantity == 2 && items[0].UnitPriceSnapshot == 100000
	})).Return(nil)
	r.orderItems.On("CreateBulk", mock.Anything, int64(502), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].VariantID == 200
	})).Return(nil)

	r.cartItems.On("DeleteByCartAndVariantIDs", mock.Anything, int64(5), []int64{100, 200}).Return(nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{}, nil)
	r.carts.On("UpdateStatus", mock.Anything, int64(5), model.CartStatusCheckedOut).Return(nil)

	uc := newCheckoutUC(tx, addrRepo, new(MockUserRepo))

	out, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Orders))
	assert.Equal(t, int64(230000), out.Orders[0].Total)
	assert.Equal(t, int64(80000), out.Orders[1].Total)

	r.orders.AssertExpectations(t)
	r.orderItems.AssertExpectations(t)
	r.carts.AssertExpectations(t)
	r.cartItems.AssertExpectations(t)
}

// 1行でも在庫不足なら注文は1件も作らない
func TestPlaceOrders_ShortfallAbortsAll(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}
	addrRepo := new(MockAddressRepo)

	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 1), nil)

	r.orders.On("ListByIdempotencyKey", mock.Anything, int64(1), "key-1").Return([]model.Order{}, nil)
	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 2},
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil)

	//100は在庫1しかない
	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 10, 1000, 1), nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(200)).Return(activeDetail(200, 20, 20, 2000, 9), nil)

	uc := newCheckoutUC(tx, addrRepo, new(MockUserRepo))

	_, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
	})
	assertHTTPErr(t, err, http.StatusConflict, CodeStockInsufficient)

	he, _ := AsHTTPError(err)
	assert.Equal(t, 1, len(he.InvalidItems))
	assert.Equal(t, int64(2), he.InvalidItems[0].Requested)
	assert.Equal(t, int64(1), he.InvalidItems[0].Available)

	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	r.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
}

// 事前検証は通ったが減算時に0行更新（先に他の誰かが買った）
func TestPlaceOrders_ConcurrentLastUnit(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}
	addrRepo := new(MockAddressRepo)

	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 1), nil)

	r.orders.On("ListByIdempotencyKey", mock.Anything, int64(1), "key-1").Return([]model.Order{}, nil)
	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 1},
	}, nil)

	//読み取り時点では在庫1に見える
	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 10, 1000, 1), nil)

	//条件付きUPDATEが0行＝不足。巻き戻し。
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(false, nil)
	r.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, Stock: 0}, nil)

	uc := newCheckoutUC(tx, addrRepo, new(MockUserRepo))

	_, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
	})
	assertHTTPErr(t, err, http.StatusConflict, CodeStockInsufficient)

	he, _ := AsHTTPError(err)
	assert.Equal(t, int64(0), he.InvalidItems[0].Available)

	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 同じキーの再送は在庫を減らさず元の注文群を返す
func TestPlaceOrders_IdempotentReplay(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}
	addrRepo := new(MockAddressRepo)

	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 1), nil)

	existing := []model.Order{
		{ID: 501, OrderNumber: "ORD-X", UserID: 1, VendorID: 10, Total: 230000, IdempotencyKey: "key-1"},
		{ID: 502, OrderNumber: "ORD-Y", UserID: 1, VendorID: 20, Total: 80000, IdempotencyKey: "key-1"},
	}
	r.orders.On("ListByIdempotencyKey", mock.Anything, int64(1), "key-1").Return(existing, nil)
	r.orderItems.On("ListByOrderID", mock.Anything, int64(501)).Return([]model.OrderItem{}, nil)
	r.orderItems.On("ListByOrderID", mock.Anything, int64(502)).Return([]model.OrderItem{}, nil)

	uc := newCheckoutUC(tx, addrRepo, new(MockUserRepo))

	out, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Orders))
	assert.Equal(t, int64(501), out.Orders[0].ID)

	r.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 他人の住所は403
func TestPlaceOrders_ForeignAddress(t *testing.T) {
	addrRepo := new(MockAddressRepo)
	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 2), nil)

	uc := newCheckoutUC(&fakeTxManager{repos: newFakeTxRepos()}, addrRepo, new(MockUserRepo))

	_, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
	})
	assertHTTPErr(t, err, http.StatusForbidden, CodeForbidden)
}

func TestPlaceOrders_MissingIdempotencyKey(t *testing.T) {
	uc := newCheckoutUC(&fakeTxManager{repos: newFakeTxRepos()}, new(MockAddressRepo), new(MockUserRepo))

	_, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:     77,
		PaymentMethod: "card",
	})
	assertHTTPErr(t, err, http.StatusBadRequest, CodeValidation)
}

// 部分チェックアウト：指定行だけ注文し、残りはカートに残る
func TestPlaceOrders_PartialCheckout(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}
	addrRepo := new(MockAddressRepo)

	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 1), nil)

	r.orders.On("ListByIdempotencyKey", mock.Anything, int64(1), "key-1").Return([]model.Order{}, nil)
	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 1},
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil).Once()

	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 10, 1000, 5), nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)

	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.VendorID == 10
	})).Return(int64(501), nil)
	r.orderItems.On("CreateBulk", mock.Anything, int64(501), mock.Anything).Return(nil)

	//注文した100だけ消す
	r.cartItems.On("DeleteByCartAndVariantIDs", mock.Anything, int64(5), []int64{100}).Return(nil)
	//200が残っているのでCHECKED_OUTにはしない
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil)

	uc := newCheckoutUC(tx, addrRepo, new(MockUserRepo))

	out, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
		VariantIDs:     []int64{100},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Orders))

	r.carts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	r.variants.AssertNotCalled(t, "FindDetailByID", mock.Anything, int64(200))
}

// クーポンはグループごとに独立適用
func TestPlaceOrders_CouponAppliedPerGroup(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}
	addrRepo := new(MockAddressRepo)
	userRepo := new(MockUserRepo)

	addrRepo.On("FindByID", mock.Anything, int64(77)).Return(ownedAddress(77, 1), nil)

	r.orders.On("ListByIdempotencyKey", mock.Anything, int64(1), "key-1").Return([]model.Order{}, nil)
	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 1},
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil).Once()

	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 10, 100000, 5), nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(200)).Return(activeDetail(200, 20, 20, 50000, 5), nil)

	r.coupons.On("FindByCode", mock.Anything, "SALE10").Return(model.Coupon{
		Code: "SALE10", DiscountPercent: 10, ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	r.orders.On("CountByUserID", mock.Anything, int64(1)).Return(int64(0), nil)
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Plan: model.PlanFree}, nil)

	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(200), int64(1)).Return(true, nil)

	//ベンダー10: 100000 - 10000 + 30000 = 120000
	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.VendorID == 10 && o.Discount == 10000 && o.Total == 120000
	})).Return(int64(501), nil)
	//ベンダー20: 50000 - 5000 + 30000 = 75000
	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.VendorID == 20 && o.Discount == 5000 && o.Total == 75000
	})).Return(int64(502), nil)

	r.orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	r.cartItems.On("DeleteByCartAndVariantIDs", mock.Anything, int64(5), []int64{100, 200}).Return(nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{}, nil)
	r.carts.On("UpdateStatus", mock.Anything, int64(5), model.CartStatusCheckedOut).Return(nil)

	uc := newCheckoutUC(tx, addrRepo, userRepo)

	out, err := uc.PlaceOrders(context.Background(), 1, PlaceOrdersInput{
		AddressID:      77,
		PaymentMethod:  "card",
		CouponCode:     "sale10",
		IdempotencyKey: "key-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Orders))

	r.orders.AssertExpectations(t)
}

// =====================
// GetCheckoutPreview
// =====================

func TestGetCheckoutPreview_GroupsAndTotal(t *testing.T) {
	r := newFakeTxRepos()
	tx := &fakeTxManager{repos: r}

	r.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5}, nil)
	r.cartItems.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, VariantID: 100, Quantity: 2},
		{ID: 2, CartID: 5, VariantID: 200, Quantity: 1},
	}, nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(100)).Return(activeDetail(100, 10, 10, 100000, 5), nil)
	r.variants.On("FindDetailByID", mock.Anything, int64(200)).Return(activeDetail(200, 20, 20, 50000, 5), nil)

	uc := newCheckoutUC(tx, new(MockAddressRepo), new(MockUserRepo))

	out, err := uc.GetCheckoutPreview(context.Background(), 1, "")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Groups))
	assert.Equal(t, int64(230000+80000), out.Total)
}

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)

	n1 := newOrderNumber(now)
	n2 := newOrderNumber(now)

	assert.True(t, strings.HasPrefix(n1, "ORD-20260828093000-"))
	assert.Equal(t, len("ORD-20260828093000-")+8, len(n1))
	//同時刻でもランダムサフィックスで別番号
	assert.NotEqual(t, n1, n2)
}
