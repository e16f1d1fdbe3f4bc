package server

import (
	"app/internal/config"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RouteRegistrarは各handlerが自分のルートを登録するための口
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config)
}

func Start(addr string, cfg config.Config, handlers ...RouteRegistrar) error {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	RegisterRoutes(e, cfg, handlers...)

	return e.Start(addr)
}
