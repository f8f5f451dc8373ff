package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"souqra-system/internal/database"
	"souqra-system/internal/database/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "shop.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateShopDB(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewService(db, client), db
}

func seedCategory(t *testing.T, db *gorm.DB) models.Category {
	t.Helper()
	category := models.Category{NameEN: "Bags", NameFR: "Sacs", NameAR: "حقائب"}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func testProduct(categoryID int64, skus ...string) models.Product {
	variants := make([]models.ProductVariant, 0, len(skus))
	for _, sku := range skus {
		variants = append(variants, models.ProductVariant{
			Size: "M", Color: "brown", Stock: 5, SKU: sku, IsActive: true,
		})
	}
	return models.Product{
		NameEN:          "Tote",
		NameFR:          "Cabas",
		NameAR:          "حقيبة",
		OriginalPrice:   "40.00",
		SellingPrice:    "60.00",
		DiscountPercent: "0",
		Images:          models.ImageList{"tote.jpg"},
		CategoryID:      categoryID,
		IsActive:        true,
		Variants:        variants,
	}
}

func TestCreateProductRejectsDuplicateSKUInSet(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1", "BAG-1")
	err := svc.CreateProduct(context.Background(), &product)
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestCreateProductRejectsStoredSKU(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	first := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &first))

	second := testProduct(category.ID, "BAG-1")
	err := svc.CreateProduct(context.Background(), &second)
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestUpdateProductKeepsOwnSKU(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	// Re-submitting a product with its own SKUs is not a conflict.
	product.NameEN = "Weekender"
	require.NoError(t, svc.UpdateProduct(context.Background(), &product))

	reloaded, err := svc.GetProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekender", reloaded.NameEN)
}

func TestGetProductsNestsActiveVariantsOnly(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1", "BAG-2")
	product.Variants[1].IsActive = false
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	inactive := testProduct(category.ID, "BAG-3")
	inactive.IsActive = false
	require.NoError(t, svc.CreateProduct(context.Background(), &inactive))

	products, err := svc.GetProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 1)
	require.Len(t, products[0].Variants, 1)
	assert.Equal(t, "BAG-1", products[0].Variants[0].SKU)
}

func TestGetProductsByIDsSkipsMissing(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	byID, err := svc.GetProductsByIDs(context.Background(), []int64{product.ID, 9999})
	require.NoError(t, err)

	assert.Len(t, byID, 1)
	_, ok := byID[product.ID]
	assert.True(t, ok)
}

func TestDeleteProductRemovesVariants(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1", "BAG-2")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	require.NoError(t, svc.DeleteProduct(context.Background(), product.ID))

	var count int64
	require.NoError(t, db.Model(&models.ProductVariant{}).
		Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err := svc.GetProductByID(context.Background(), product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestVariantStockRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))
	variantID := product.Variants[0].ID

	stock, err := svc.VariantStock(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), stock)

	require.NoError(t, svc.SetVariantStock(context.Background(), variantID, 12))

	stock, err = svc.VariantStock(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, int32(12), stock)
}

func TestSetVariantStockRejectsNegative(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	err := svc.SetVariantStock(context.Background(), product.Variants[0].ID, -1)
	assert.Error(t, err)
}

func TestSetVariantStockMissingVariant(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.SetVariantStock(context.Background(), 9999, 3)
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestDeleteCategoryRefusesWhenProductsRemain(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	err := svc.DeleteCategory(context.Background(), category.ID)
	assert.Error(t, err)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestDeleteEmptyCategory(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	require.NoError(t, svc.DeleteCategory(context.Background(), category.ID))
	assert.ErrorIs(t, svc.DeleteCategory(context.Background(), category.ID), ErrCategoryNotFound)
}

func TestDeliverySettingsAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	settings, err := svc.GetDeliverySettings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestDeliverySettingsSingleton(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, svc.SaveDeliverySettings(context.Background(), &models.DeliverySettings{
		MinOrderAmount: "100",
		DeliveryCost:   "7",
		IsActive:       true,
	}))
	require.NoError(t, svc.SaveDeliverySettings(context.Background(), &models.DeliverySettings{
		MinOrderAmount: "150",
		DeliveryCost:   "9",
		IsActive:       true,
	}))

	var count int64
	require.NoError(t, db.Model(&models.DeliverySettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	settings, err := svc.GetDeliverySettings(context.Background())
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "150", settings.MinOrderAmount)
}

func TestGetProductsServesFromCacheAfterFirstRead(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db)

	product := testProduct(category.ID, "BAG-1")
	require.NoError(t, svc.CreateProduct(context.Background(), &product))

	first, err := svc.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A direct DB write bypasses invalidation; the cache still serves the
	// old list until it expires or a service mutation clears it.
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).Update("is_active", false).Error)

	cached, err := svc.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	svc.InvalidateCatalogCaches(context.Background(), product.ID)

	fresh, err := svc.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
