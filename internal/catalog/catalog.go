package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"souqra-system/internal/database/models"
)

const (
	CATALOG_CACHE_PREFIX   = "catalog:"
	PRODUCTS_CACHE_KEY     = "catalog:products"
	CATEGORIES_CACHE_KEY   = "catalog:categories"
	CACHE_TTL_SHORT        = 5 * time.Minute
	CACHE_TTL_MEDIUM       = 30 * time.Minute
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrVariantNotFound  = errors.New("product variant not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateSKU     = errors.New("duplicate SKU")
)

// Service is the typed query layer over the relational store. The cart,
// pricing and order components only ever touch products, variants,
// categories and delivery settings through it.
type Service struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{
		db:    db,
		redis: redisClient,
	}
}

func (s *Service) InvalidateCatalogCaches(ctx context.Context, productIDs ...int64) {
	_ = s.redis.Del(ctx, PRODUCTS_CACHE_KEY, CATEGORIES_CACHE_KEY)

	for _, id := range productIDs {
		cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, id)
		_ = s.redis.Del(ctx, cacheKey)
	}
}

// -- Products --

func (s *Service) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product

	if cached, err := s.redis.Get(ctx, PRODUCTS_CACHE_KEY).Bytes(); err == nil {
		if err := json.Unmarshal(cached, &products); err == nil {
			return products, nil
		}
	}

	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("Variants", "is_active = ?", true).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(products); err == nil {
		_ = s.redis.Set(ctx, PRODUCTS_CACHE_KEY, payload, CACHE_TTL_SHORT).Err()
	}

	return products, nil
}

func (s *Service) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Variants", "is_active = ?", true).
		First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs returns the requested products keyed by ID with their
// active variants nested. IDs that match nothing are simply absent from
// the map; callers treat the corresponding lines as unresolved.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	byID := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Preload("Variants", "is_active = ?", true).
		Find(&products).Error; err != nil {
		return nil, err
	}

	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func (s *Service) GetProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Preload("Variants", "is_active = ?", true).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct inserts the product together with its variants. SKUs are
// checked for uniqueness before the insert; the unique index on the
// column stays authoritative.
func (s *Service) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.checkSKUConflict(ctx, product.Variants); err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(product).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.InvalidateCatalogCaches(ctx, product.ID)
	return nil
}

// UpdateProduct saves product fields and upserts the submitted variants.
// Variants with a zero ID are created, the rest overwritten.
func (s *Service) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.checkSKUConflict(ctx, product.Variants); err != nil {
		return err
	}

	var existing models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", product.ID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrProductNotFound
		}
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	variants := product.Variants
	product.Variants = nil
	if err := tx.Omit("created_at").Save(product).Error; err != nil {
		tx.Rollback()
		return err
	}

	for i := range variants {
		variants[i].ProductID = product.ID
		var err error
		if variants[i].ID == 0 {
			err = tx.Create(&variants[i]).Error
		} else {
			err = tx.Omit("created_at").Save(&variants[i]).Error
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	product.Variants = variants

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.InvalidateCatalogCaches(ctx, product.ID)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	result := tx.Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return ErrProductNotFound
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.InvalidateCatalogCaches(ctx, id)
	return nil
}

func (s *Service) DeleteVariant(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductVariant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVariantNotFound
	}
	s.InvalidateCatalogCaches(ctx)
	return nil
}

// checkSKUConflict rejects duplicates within the submitted set and
// against variants already stored for other products or rows.
func (s *Service) checkSKUConflict(ctx context.Context, variants []models.ProductVariant) error {
	seen := make(map[string]bool, len(variants))
	skus := make([]string, 0, len(variants))
	keepIDs := make([]int64, 0, len(variants))

	for _, v := range variants {
		if seen[v.SKU] {
			return ErrDuplicateSKU
		}
		seen[v.SKU] = true
		skus = append(skus, v.SKU)
		if v.ID != 0 {
			keepIDs = append(keepIDs, v.ID)
		}
	}

	if len(skus) == 0 {
		return nil
	}

	query := s.db.WithContext(ctx).Model(&models.ProductVariant{}).Where("sku IN ?", skus)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateSKU
	}
	return nil
}

// -- Variant stock --

func (s *Service) VariantStock(ctx context.Context, variantID int64) (int32, error) {
	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).Where("id = ?", variantID).First(&variant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, ErrVariantNotFound
		}
		return 0, err
	}
	return variant.Stock, nil
}

func (s *Service) SetVariantStock(ctx context.Context, variantID int64, stock int32) error {
	if stock < 0 {
		return fmt.Errorf("stock must not be negative")
	}

	result := s.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]interface{}{
			"stock":      stock,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVariantNotFound
	}

	s.InvalidateCatalogCaches(ctx)
	return nil
}

// -- Categories --

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category

	if cached, err := s.redis.Get(ctx, CATEGORIES_CACHE_KEY).Bytes(); err == nil {
		if err := json.Unmarshal(cached, &categories); err == nil {
			return categories, nil
		}
	}

	if err := s.db.WithContext(ctx).
		Preload("Products", "is_active = ?", true).
		Order("name_en asc").
		Find(&categories).Error; err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(categories); err == nil {
		_ = s.redis.Set(ctx, CATEGORIES_CACHE_KEY, payload, CACHE_TTL_MEDIUM).Err()
	}

	return categories, nil
}

func (s *Service) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return err
	}
	s.InvalidateCatalogCaches(ctx)
	return nil
}

func (s *Service) UpdateCategory(ctx context.Context, category *models.Category) error {
	var existing models.Category
	if err := s.db.WithContext(ctx).Where("id = ?", category.ID).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrCategoryNotFound
		}
		return err
	}

	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return err
	}
	s.InvalidateCatalogCaches(ctx)
	return nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("category still has %d products", count)
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}

	s.InvalidateCatalogCaches(ctx)
	return nil
}

// -- Delivery settings --

// GetDeliverySettings returns the singleton settings row, or (nil, nil)
// when it does not exist. Callers feed the result straight into
// pricing.DeliveryCost, which treats nil as free delivery: an explicit
// fail-open policy so a missing row never blocks checkout.
func (s *Service) GetDeliverySettings(ctx context.Context) (*models.DeliverySettings, error) {
	var settings models.DeliverySettings
	if err := s.db.WithContext(ctx).First(&settings).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (s *Service) SaveDeliverySettings(ctx context.Context, settings *models.DeliverySettings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(settings).Error
}
