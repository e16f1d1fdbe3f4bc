package usecase

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// CouponUsecase は /coupons の業務ロジックです。
// 検証は読み取りのみ（予約・消込はしない）。同じ入力なら同じ結果。
type CouponUsecase struct {
	couponRepo repo.CouponRepository
	orderRepo  repo.OrderRepository
	userRepo   repo.UserRepository
	auditRepo  repo.AuditLogRepository
}

func NewCouponUsecase(
	couponRepo repo.CouponRepository,
	orderRepo repo.OrderRepository,
	userRepo repo.UserRepository,
	auditRepo repo.AuditLogRepository,
) *CouponUsecase {
	return &CouponUsecase{
		couponRepo: couponRepo,
		orderRepo:  orderRepo,
		userRepo:   userRepo,
		auditRepo:  auditRepo,
	}
}

type CouponOutput struct {
	Code            string    `json:"code"`
	DiscountPercent int64     `json:"discount_percent"`
	Description     string    `json:"description"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// クーポンコードの適用可否を判定して返す。
// 失敗は typed rejection（not-found / expired / new-user-only / member-only）。
func (u *CouponUsecase) ValidateCoupon(ctx context.Context, userID int64, code string) (CouponOutput, error) {
	if userID <= 0 {
		return CouponOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > 50 {
		return CouponOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid code")
	}

	c, err := u.couponRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return CouponOutput{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "coupon not found")
	}
	if err != nil {
		return CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//ユーザーのプランを引く（member-only判定）
	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return CouponOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}
	if err != nil {
		return CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//過去の注文数（new-user判定）
	priorOrders, err := u.orderRepo.CountByUserID(ctx, userID)
	if err != nil {
		return CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	if err := checkCouponEligibility(c, time.Now(), priorOrders, user.Plan == model.PlanMember); err != nil {
		return CouponOutput{}, err
	}

	return CouponOutput{
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		Description:     c.Description,
		ExpiresAt:       c.ExpiresAt,
	}, nil
}

// 公開クーポン一覧（期限切れは出さない）
func (u *CouponUsecase) ListPublicCoupons(ctx context.Context) ([]CouponOutput, error) {
	items, err := u.couponRepo.ListPublic(ctx)
	if err != nil {
		return []CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	outs := make([]CouponOutput, 0, len(items))
	for _, c := range items {
		outs = append(outs, CouponOutput{
			Code:            c.Code,
			DiscountPercent: c.DiscountPercent,
			Description:     c.Description,
			ExpiresAt:       c.ExpiresAt,
		})
	}
	return outs, nil
}

// 適用ルール本体。時刻・注文数・プランを外から渡すので純粋。
// expires_at ちょうども期限切れ扱い。
func checkCouponEligibility(c model.Coupon, now time.Time, priorOrders int64, hasEligiblePlan bool) error {
	if !c.ExpiresAt.After(now) {
		return NewHTTPError(http.StatusGone, CodeExpired, "coupon expired")
	}
	if c.ForNewUser && priorOrders > 0 {
		return NewHTTPError(http.StatusForbidden, CodeIneligible, "coupon is for new users only")
	}
	if c.ForMember && !hasEligiblePlan {
		return NewHTTPError(http.StatusForbidden, CodeIneligible, "coupon is for members only")
	}
	return nil
}

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{2,50}$`)

type CreateCouponInput struct {
	Code            string
	DiscountPercent int64
	Description     string
	ExpiresAt       time.Time
	IsPublic        bool
	ForNewUser      bool
	ForMember       bool
}

// 管理者によるクーポン作成
func (u *CouponUsecase) CreateCoupon(ctx context.Context, actorAdminUserID int64, in CreateCouponInput) (CouponOutput, error) {
	if actorAdminUserID <= 0 {
		return CouponOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if !couponCodePattern.MatchString(code) {
		return CouponOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid code")
	}
	if in.DiscountPercent < 1 || in.DiscountPercent > 100 {
		return CouponOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "invalid discount_percent")
	}
	if !in.ExpiresAt.After(time.Now()) {
		return CouponOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidation, "expires_at must be in the future")
	}

	//既存コードは409
	if _, err := u.couponRepo.FindByCode(ctx, code); err == nil {
		return CouponOutput{}, NewHTTPError(http.StatusConflict, CodeConflict, "code already exists")
	} else if err != repo.ErrNotFound {
		return CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	created, err := u.couponRepo.Create(ctx, model.Coupon{
		Code:            code,
		DiscountPercent: in.DiscountPercent,
		Description:     in.Description,
		ExpiresAt:       in.ExpiresAt,
		IsPublic:        in.IsPublic,
		ForNewUser:      in.ForNewUser,
		ForMember:       in.ForMember,
	})
	if err != nil {
		return CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//監査ログ（CREATE_COUPON）
	afterJSON := `{"code":"` + created.Code + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionCreateCoupon,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   created.ID,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return CouponOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return CouponOutput{
		Code:            created.Code,
		DiscountPercent: created.DiscountPercent,
		Description:     created.Description,
		ExpiresAt:       created.ExpiresAt,
	}, nil
}
