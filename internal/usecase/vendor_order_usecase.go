package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// ベンダー側の注文操作。変えられるのはstatusだけ。
type VendorOrderUsecase struct {
	tx         repo.TransactionManager
	vendorRepo repo.VendorRepository
	auditRepo  repo.AuditLogRepository
}

func NewVendorOrderUsecase(tx repo.TransactionManager, vendorRepo repo.VendorRepository, auditRepo repo.AuditLogRepository) *VendorOrderUsecase {
	return &VendorOrderUsecase{tx: tx, vendorRepo: vendorRepo, auditRepo: auditRepo}
}

type UpdateOrderStatusInput struct {
	Status string
}

// 自分のベンダーに入った注文一覧
func (u *VendorOrderUsecase) List(ctx context.Context, vendorUserID int64, f repo.OrderListFilter) ([]OrderOutput, error) {
	if vendorUserID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid limit")
	}

	vendor, err := u.vendorRepo.FindByUserID(ctx, vendorUserID)
	if err == repo.ErrNotFound {
		return []OrderOutput{}, NewHTTPError(http.StatusForbidden, CodeForbidden, "vendor only")
	}
	if err != nil {
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	var outs []OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByVendorID(ctx, vendor.ID, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ステータス更新。遷移表に無い遷移は全部拒否（no-opにしない）。
// CANCELLEDになるときだけ在庫を戻す。
func (u *VendorOrderUsecase) UpdateStatus(ctx context.Context, vendorUserID int64, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	if vendorUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.IsValid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid status")
	}

	vendor, err := u.vendorRepo.FindByUserID(ctx, vendorUserID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, CodeForbidden, "vendor only")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//他ベンダーの注文は「存在しない扱い」
		if o.VendorID != vendor.ID {
			return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
		}

		//遷移表チェック
		if !o.Status.CanTransitionTo(newStatus) {
			return NewHTTPError(http.StatusConflict, CodeTransitionRejected,
				"cannot transition from "+string(o.Status)+" to "+string(newStatus))
		}

		//CANCELLEDのときだけ在庫戻し
		if newStatus == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}

			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.VariantID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
				}
			}
		}

		beforeStatus := string(o.Status)
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, CodeNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + beforeStatus + `"}`
		afterJSON := `{"status":"` + string(newStatus) + `"}`
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  vendorUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		o.Status = newStatus
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
