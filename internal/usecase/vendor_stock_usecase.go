package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// ベンダーによる在庫調整。履歴と監査ログを必ず残す。
type VendorStockUsecase struct {
	variantRepo   repo.VariantRepository
	inventoryRepo repo.InventoryRepository
	vendorRepo    repo.VendorRepository
	auditRepo     repo.AuditLogRepository
}

func NewVendorStockUsecase(
	variantRepo repo.VariantRepository,
	inventoryRepo repo.InventoryRepository,
	vendorRepo repo.VendorRepository,
	auditRepo repo.AuditLogRepository,
) *VendorStockUsecase {
	return &VendorStockUsecase{
		variantRepo:   variantRepo,
		inventoryRepo: inventoryRepo,
		vendorRepo:    vendorRepo,
		auditRepo:     auditRepo,
	}
}

type SetStockInput struct {
	NewStock int64
	Reason   string
}

func (u *VendorStockUsecase) SetVariantStock(ctx context.Context, vendorUserID int64, variantID int64, in SetStockInput) error {
	if vendorUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if variantID <= 0 {
		return NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}
	if in.NewStock < 0 {
		return NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid stock")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" || len(reason) > 255 {
		return NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid reason")
	}

	vendor, err := u.vendorRepo.FindByUserID(ctx, vendorUserID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusForbidden, CodeForbidden, "vendor only")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//他ベンダーの商品は「存在しない扱い」
	owned, err := u.variantRepo.IsOwnedByVendor(ctx, variantID, vendor.ID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !owned {
		return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
	}

	v, err := u.variantRepo.FindByID(ctx, variantID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	if err := u.inventoryRepo.SetStock(ctx, variantID, in.NewStock); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//調整履歴
	if err := u.inventoryRepo.CreateAdjustment(ctx, model.InventoryAdjustment{
		VariantID:   variantID,
		ActorUserID: vendorUserID,
		Delta:       in.NewStock - v.Stock,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//監査ログ（UPDATE_STOCK）
	beforeJSON := `{"stock":` + strconv.FormatInt(v.Stock, 10) + `}`
	afterJSON := `{"stock":` + strconv.FormatInt(in.NewStock, 10) + `}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  vendorUserID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceVariant,
		ResourceID:   variantID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return nil
}
