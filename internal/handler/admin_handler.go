package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者画面のHTTP。クーポン発行と全注文の閲覧。
type AdminHandler struct {
	couponUC *usecase.CouponUsecase
	orderUC  *usecase.AdminOrderUsecase
}

func NewAdminHandler(couponUC *usecase.CouponUsecase, orderUC *usecase.AdminOrderUsecase) *AdminHandler {
	return &AdminHandler{couponUC: couponUC, orderUC: orderUC}
}

type CreateCouponRequest struct {
	Code            string    `json:"code"`
	DiscountPercent int64     `json:"discount_percent"`
	Description     string    `json:"description"`
	ExpiresAt       time.Time `json:"expires_at"`
	IsPublic        bool      `json:"is_public"`
	ForNewUser      bool      `json:"for_new_user"`
	ForMember       bool      `json:"for_member"`
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.POST("/coupons", h.createCoupon)
	g.GET("/orders", h.listOrders)
}

func (h *AdminHandler) createCoupon(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
	}

	var req CreateCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeValidation})
	}

	out, err := h.couponUC.CreateCoupon(c.Request().Context(), userID, usecase.CreateCouponInput{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		Description:     req.Description,
		ExpiresAt:       req.ExpiresAt,
		IsPublic:        req.IsPublic,
		ForNewUser:      req.ForNewUser,
		ForMember:       req.ForMember,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminHandler) listOrders(c echo.Context) error {
	if _, ok := getUserIDFromContext(c); !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: usecase.CodeUnauthorized})
	}

	in := usecase.AdminOrderListInput{
		Page:   1,
		Limit:  50,
		Status: c.QueryParam("status"),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	}
	if v := c.QueryParam("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			in.Page = p
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			in.Limit = l
		}
	}
	if v := c.QueryParam("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			in.UserID = id
		}
	}

	out, err := h.orderUC.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
