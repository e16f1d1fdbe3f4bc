package main

import (
	"log"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	// .envは無くても動く（環境変数直指定の場合）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Vendor{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Coupon{},
		&model.Address{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）生成
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	variantRepo := infraRepo.NewVariantGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	vendorRepo := infraRepo.NewVendorGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, variantRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, addressRepo, userRepo, cfg.ShippingFeePerVendor, cfg.PlatformFeeBps)
	orderUC := usecase.NewOrderUsecase(txManager)
	couponUC := usecase.NewCouponUsecase(couponRepo, orderRepo, userRepo, auditRepo)
	vendorOrderUC := usecase.NewVendorOrderUsecase(txManager, vendorRepo, auditRepo)
	vendorStockUC := usecase.NewVendorStockUsecase(variantRepo, inventoryRepo, vendorRepo, auditRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager)
	addressUC := usecase.NewAddressUsecase(addressRepo)

	//Handler生成
	cartH := handler.NewCartHandler(cartUC)
	checkoutH := handler.NewCheckoutHandler(checkoutUC)
	orderH := handler.NewOrderHandler(orderUC)
	couponH := handler.NewCouponHandler(couponUC)
	vendorH := handler.NewVendorHandler(vendorOrderUC, vendorStockUC)
	adminH := handler.NewAdminHandler(couponUC, adminOrderUC)
	addressH := handler.NewAddressHandler(addressUC)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := server.Start(addr, cfg,
		cartH,
		checkoutH,
		orderH,
		couponH,
		vendorH,
		adminH,
		addressH,
	); err != nil {
		log.Fatalf("server: %v", err)
	}
}
