package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type VariantGormRepository struct {
	db *gorm.DB
}

// DI
func NewVariantGormRepository(db *gorm.DB) *VariantGormRepository {
	return &VariantGormRepository{db: db}
}

func (r *VariantGormRepository) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var v model.ProductVariant

	err := r.db.WithContext(ctx).
		Where("id = ?", variantID).
		First(&v).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

// バリアント＋商品＋ベンダーを1回のJOINで引く
func (r *VariantGormRepository) FindDetailByID(ctx context.Context, variantID int64) (repo.VariantDetail, error) {
	var row struct {
		model.ProductVariant
		ProductName     string
		ProductSlug     string
		ProductImage    string
		ProductIsActive bool
		VendorID        int64
		VendorName      string
	}

	err := r.db.WithContext(ctx).
		Table("product_variants").
		Select(`product_variants.*,
			products.name AS product_name,
			products.slug AS product_slug,
			products.image_url AS product_image,
			products.is_active AS product_is_active,
			vendors.id AS vendor_id,
			vendors.name AS vendor_name`).
		Joins("join products on products.id = product_variants.product_id AND products.deleted_at IS NULL").
		Joins("join vendors on vendors.id = products.vendor_id").
		Where("product_variants.id = ?", variantID).
		Take(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.VariantDetail{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.VariantDetail{}, err
	}

	return repo.VariantDetail{
		Variant:     row.ProductVariant,
		ProductName: row.ProductName,
		ProductSlug: row.ProductSlug,
		ImageURL:    row.ProductImage,
		IsActive:    row.ProductVariant.IsActive && row.ProductIsActive,
		VendorID:    row.VendorID,
		VendorName:  row.VendorName,
	}, nil
}

func (r *VariantGormRepository) IsOwnedByVendor(ctx context.Context, variantID int64, vendorID int64) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Table("product_variants").
		Joins("join products on products.id = product_variants.product_id").
		Where("product_variants.id = ? AND products.vendor_id = ?", variantID, vendorID).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}
