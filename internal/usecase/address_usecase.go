package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 住所。チェックアウトが必要とする最小限（作成・一覧）だけ。
type AddressUsecase struct {
	addressRepo repo.AddressRepository
}

func NewAddressUsecase(addressRepo repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addressRepo: addressRepo}
}

type CreateAddressInput struct {
	PostalCode string
	Prefecture string
	City       string
	Line1      string
	Line2      string
	Name       string
	Phone      string
	IsDefault  bool
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, in CreateAddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "postal_code is required")
	}
	if strings.TrimSpace(in.Prefecture) == "" {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "prefecture is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "city is required")
	}
	if strings.TrimSpace(in.Line1) == "" {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "line1 is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "name is required")
	}

	created, err := u.addressRepo.Create(ctx, model.Address{
		UserID:     userID,
		PostalCode: strings.TrimSpace(in.PostalCode),
		Prefecture: strings.TrimSpace(in.Prefecture),
		City:       strings.TrimSpace(in.City),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault,
	})
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return created, nil
}

func (u *AddressUsecase) ListMyAddresses(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return []model.Address{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	items, err := u.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Address{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	return items, nil
}
