package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test_secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authz string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	_ = h(c)
	return rec, c
}

func TestAuthJWT_Success(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	token := signToken(t, jwt.MapClaims{
		"sub":  "42",
		"role": "USER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	rec, c := doRequest(t, AuthJWT(cfg), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), c.Get(CtxUserIDKey))
	assert.Equal(t, "USER", c.Get(CtxUserRoleKey))
}

// subは数値でも文字列でも受ける
func TestAuthJWT_NumericSub(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	token := signToken(t, jwt.MapClaims{
		"sub":  float64(7),
		"role": "VENDOR",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	rec, c := doRequest(t, AuthJWT(cfg), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), c.Get(CtxUserIDKey))
}

func TestAuthJWT_MissingHeader(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	rec, _ := doRequest(t, AuthJWT(cfg), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_WrongSecret(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	token := signToken(t, jwt.MapClaims{
		"sub":  "42",
		"role": "USER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, "other_secret")

	rec, _ := doRequest(t, AuthJWT(cfg), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_ExpiredToken(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	token := signToken(t, jwt.MapClaims{
		"sub":  "42",
		"role": "USER",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	rec, _ := doRequest(t, AuthJWT(cfg), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_NotBearer(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	rec, _ := doRequest(t, AuthJWT(cfg), "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// ロールガード
// =====================

func doGuardedRequest(t *testing.T, mw echo.MiddlewareFunc, role interface{}) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set(CtxUserRoleKey, role)
	}

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	_ = h(c)
	return rec
}

func TestVendorRoleGuard(t *testing.T) {
	assert.Equal(t, http.StatusOK, doGuardedRequest(t, VendorRoleGuard(), "VENDOR").Code)
	assert.Equal(t, http.StatusForbidden, doGuardedRequest(t, VendorRoleGuard(), "USER").Code)
	//管理者も/vendorは使えない（/adminを使う）
	assert.Equal(t, http.StatusForbidden, doGuardedRequest(t, VendorRoleGuard(), "ADMIN").Code)
	//roleが無い＝未認証扱い
	assert.Equal(t, http.StatusUnauthorized, doGuardedRequest(t, VendorRoleGuard(), nil).Code)
}

func TestAdminRoleGuard(t *testing.T) {
	assert.Equal(t, http.StatusOK, doGuardedRequest(t, AdminRoleGuard(), "ADMIN").Code)
	assert.Equal(t, http.StatusForbidden, doGuardedRequest(t, AdminRoleGuard(), "USER").Code)
	assert.Equal(t, http.StatusForbidden, doGuardedRequest(t, AdminRoleGuard(), "VENDOR").Code)
}
