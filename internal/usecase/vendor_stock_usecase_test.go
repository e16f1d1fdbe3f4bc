package usecase

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newStockUC(variantRepo *MockVariantRepo, inventoryRepo *MockInventoryRepo, vendorRepo *MockVendorRepo, auditRepo *MockAuditRepo) *VendorStockUsecase {
	return NewVendorStockUsecase(variantRepo, inventoryRepo, vendorRepo, auditRepo)
}

// 在庫更新＋調整履歴＋監査ログが全部残る
func TestSetVariantStock_Success(t *testing.T) {
	ctx := context.Background()

	variantRepo := new(MockVariantRepo)
	inventoryRepo := new(MockInventoryRepo)
	vendorRepo := new(MockVendorRepo)
	auditRepo := new(MockAuditRepo)

	vendorRepo.On("FindByUserID", mock.Anything, int64(1)).Return(model.Vendor{ID: 10}, nil)
	variantRepo.On("IsOwnedByVendor", mock.Anything, int64(100), int64(10)).Return(true, nil)
	variantRepo.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, Stock: 5}, nil)

	inventoryRepo.On("SetStock", mock.Anything, int64(100), int64(12)).Return(nil)
	inventoryRepo.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(adj model.InventoryAdjustment) bool {
		return adj.VariantID == 100 && adj.ActorUserID == 1 && adj.Delta == 7 && adj.Reason == "restock"
	})).Return(nil)

	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 1 &&
			l.Action == model.AuditActionUpdateStock &&
			l.ResourceType == model.AuditResourceVariant &&
			l.ResourceID == 100 &&
			l.BeforeJSON == `{"stock":5}` &&
			l.AfterJSON == `{"stock":12}`
	})).Return(nil)

	uc := newStockUC(variantRepo, inventoryRepo, vendorRepo, auditRepo)

	err := uc.SetVariantStock(ctx, 1, 100, SetStockInput{NewStock: 12, Reason: " restock "})
	assert.NoError(t, err)

	inventoryRepo.AssertExpectations(t)
	auditRepo.AssertExpectations(t)
}

func TestSetVariantStock_NegativeStock(t *testing.T) {
	uc := newStockUC(new(MockVariantRepo), new(MockInventoryRepo), new(MockVendorRepo), new(MockAuditRepo))

	err := uc.SetVariantStock(context.Background(), 1, 100, SetStockInput{NewStock: -1, Reason: "x"})
	assertHTTPErr(t, err, http.StatusBadRequest, CodeValidation)
}

func TestSetVariantStock_ReasonRequired(t *testing.T) {
	uc := newStockUC(new(MockVariantRepo), new(MockInventoryRepo), new(MockVendorRepo), new(MockAuditRepo))

	err := uc.SetVariantStock(context.Background(), 1, 100, SetStockInput{NewStock: 1, Reason: "  "})
	assertHTTPErr(t, err, http.StatusBadRequest, CodeValidation)
}

// 他ベンダーのバリアントは「存在しない扱い」
func TestSetVariantStock_ForeignVariantHidden(t *testing.T) {
	variantRepo := new(MockVariantRepo)
	vendorRepo := new(MockVendorRepo)

	vendorRepo.On("FindByUserID", mock.Anything, int64(1)).Return(model.Vendor{ID: 10}, nil)
	variantRepo.On("IsOwnedByVendor", mock.Anything, int64(100), int64(10)).Return(false, nil)

	uc := newStockUC(variantRepo, new(MockInventoryRepo), vendorRepo, new(MockAuditRepo))

	err := uc.SetVariantStock(context.Background(), 1, 100, SetStockInput{NewStock: 1, Reason: "x"})
	assertHTTPErr(t, err, http.StatusNotFound, CodeNotFound)
}

func TestSetVariantStock_NotAVendor(t *testing.T) {
	vendorRepo := new(MockVendorRepo)
	vendorRepo.On("FindByUserID", mock.Anything, int64(2)).Return(model.Vendor{}, repo.ErrNotFound)

	uc := newStockUC(new(MockVariantRepo), new(MockInventoryRepo), vendorRepo, new(MockAuditRepo))

	err := uc.SetVariantStock(context.Background(), 2, 100, SetStockInput{NewStock: 1, Reason: "x"})
	assertHTTPErr(t, err, http.StatusForbidden, CodeForbidden)
}
