package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	repo "app/internal/repository"
)

// 管理者の注文閲覧。
type AdminOrderUsecase struct {
	tx repo.TransactionManager
}

func NewAdminOrderUsecase(tx repo.TransactionManager) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID int64

	// RFC3339。空なら絞り込まない。
	From string
	To   string
}

func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if in.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid limit")
	}

	f := repo.OrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: strings.TrimSpace(in.Status),
	}
	if in.UserID > 0 {
		f.UserID = &in.UserID
	}
	if t, ok := parseDateTimeRFC3339(in.From); ok {
		f.From = t
	} else if strings.TrimSpace(in.From) != "" {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid from")
	}
	if t, ok := parseDateTimeRFC3339(in.To); ok {
		f.To = t
	} else if strings.TrimSpace(in.To) != "" {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid to")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
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

func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
