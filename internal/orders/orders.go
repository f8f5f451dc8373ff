package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"souqra-system/internal/cart"
	"souqra-system/internal/catalog"
	"souqra-system/internal/database/models"
	"souqra-system/internal/pricing"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderUpdated   = "order.updated"
	EventOrderCancelled = "order.cancelled"
	EventOrderDeleted   = "order.deleted"
)

// Service owns order creation, the status lifecycle and the stock
// reconciliation that rides along with it.
type Service struct {
	db      *gorm.DB
	redis   *redis.Client
	catalog *catalog.Service
}

func NewService(db *gorm.DB, redisClient *redis.Client, catalogService *catalog.Service) *Service {
	return &Service{
		db:      db,
		redis:   redisClient,
		catalog: catalogService,
	}
}

// CheckoutInput is everything the storefront collects at checkout: the
// customer's delivery details plus the cart lines to be priced.
type CheckoutInput struct {
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	AlternatePhone *string
	Address        string
	Governorate    string
	Delegation     string
	ZipCode        *string
	Lines          []cart.Line
}

// Checkout turns a cart into a pending order. Prices are recomputed
// server-side from the catalog and snapshotted onto the order items, so
// later catalog edits never change what this order is worth.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if len(input.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	ids := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.ProductID)
	}

	productsByID, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Every line must resolve before we take the order; the skip-silently
	// rule only applies to display totals.
	for _, line := range input.Lines {
		product, ok := productsByID[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrVariantNotFound, line.ProductID)
		}
		if !variantOf(product, line.VariantID) {
			return nil, fmt.Errorf("%w: variant %d", ErrVariantNotFound, line.VariantID)
		}
	}

	subtotal := pricing.Subtotal(input.Lines, productsByID)

	// Settings fetch failures fall open to free delivery rather than
	// blocking checkout.
	settings, err := s.catalog.GetDeliverySettings(ctx)
	if err != nil {
		settings = nil
	}
	deliveryFee := pricing.DeliveryCost(subtotal, settings)
	total := subtotal.Add(deliveryFee)

	now := time.Now()
	order := models.Order{
		CustomerName:   input.CustomerName,
		CustomerEmail:  input.CustomerEmail,
		CustomerPhone:  input.CustomerPhone,
		AlternatePhone: input.AlternatePhone,
		Address:        input.Address,
		Governorate:    input.Governorate,
		Delegation:     input.Delegation,
		ZipCode:        input.ZipCode,
		Subtotal:       subtotal.StringFixed(2),
		DeliveryFee:    deliveryFee.StringFixed(2),
		TotalAmount:    total.StringFixed(2),
		Status:         models.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, line := range input.Lines {
		product := productsByID[line.ProductID]
		effective := pricing.EffectiveUnitPrice(product)

		item := models.OrderItem{
			OrderID:          order.ID,
			ProductVariantID: line.VariantID,
			Quantity:         line.Quantity,
			Price:            product.SellingPrice,
			PriceAtTime:      effective.StringFixed(2),
			Discount:         product.DiscountPercent,
			CreatedAt:        now,
		}

		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	reloaded, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.publishOrderEvent(ctx, OrderEvent{
		EventType:   EventOrderCreated,
		OrderID:     reloaded.ID,
		Status:      reloaded.Status,
		TotalAmount: reloaded.TotalAmount,
		Timestamp:   time.Now(),
	})

	return reloaded, nil
}

func variantOf(product models.Product, variantID int64) bool {
	for _, v := range product.Variants {
		if v.ID == variantID {
			return true
		}
	}
	return false
}

func (s *Service) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Where("id = ?", orderID).
		Preload("Items.ProductVariant.Product").
		First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items.ProductVariant.Product")

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var orderList []models.Order
	if err := query.Order("created_at DESC").Find(&orderList).Error; err != nil {
		return nil, err
	}
	return orderList, nil
}

// SetStatus moves an order through the lifecycle. Entering completed
// decrements each item's variant stock, leaving completed for cancelled
// restores it. The whole adjustment runs in one transaction with
// conditional updates (stock = stock - qty WHERE stock >= qty), so a
// failure on any item rolls back every prior adjustment and the status
// write together.
func (s *Service) SetStatus(ctx context.Context, orderID int64, newStatus models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := validateTransition(order.Status, newStatus); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if newStatus == models.OrderStatusCompleted {
		if err := s.takeStock(tx, order.Items); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Stock is only taken at completion, so only a cancelled completed
	// order has anything to give back.
	if newStatus == models.OrderStatusCancelled && order.Status == models.OrderStatusCompleted {
		if err := s.restoreStock(tx, order.Items); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"status":     newStatus,
		"updated_at": time.Now(),
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	reloaded, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	eventType := EventOrderUpdated
	if newStatus == models.OrderStatusCancelled {
		eventType = EventOrderCancelled
	}
	s.publishOrderEvent(ctx, OrderEvent{
		EventType:   eventType,
		OrderID:     reloaded.ID,
		Status:      reloaded.Status,
		TotalAmount: reloaded.TotalAmount,
		Timestamp:   time.Now(),
	})

	return reloaded, nil
}

func (s *Service) takeStock(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		result := tx.Model(&models.ProductVariant{}).
			Where("id = ? AND stock >= ?", item.ProductVariantID, item.Quantity).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("stock - ?", item.Quantity),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update stock for variant %d: %w", item.ProductVariantID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: variant %d needs %d", ErrInsufficientStock, item.ProductVariantID, item.Quantity)
		}
	}
	return nil
}

func (s *Service) restoreStock(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		result := tx.Model(&models.ProductVariant{}).
			Where("id = ?", item.ProductVariantID).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("stock + ?", item.Quantity),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to restore stock for variant %d: %w", item.ProductVariantID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: variant %d", ErrVariantNotFound, item.ProductVariantID)
		}
	}
	return nil
}

// Delete removes the order's items and then the order in a single
// transaction; a failure on either leaves both in place.
func (s *Service) Delete(ctx context.Context, orderID int64) error {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	result := tx.Where("id = ?", orderID).Delete(&models.Order{})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return ErrOrderNotFound
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishOrderEvent(ctx, OrderEvent{
		EventType: EventOrderDeleted,
		OrderID:   orderID,
		Timestamp: time.Now(),
	})

	return nil
}

// -- Dashboard analytics --

// TotalRevenue sums the total amounts of completed orders.
func (s *Service) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var amounts []string
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", models.OrderStatusCompleted).
		Pluck("total_amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}

	revenue := decimal.Zero
	for _, amount := range amounts {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			continue
		}
		revenue = revenue.Add(value)
	}
	return revenue, nil
}

func (s *Service) OrdersCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type BestSeller struct {
	ProductVariant models.ProductVariant `json:"product_variant"`
	TotalSold      int32                 `json:"total_sold"`
	TotalRevenue   string                `json:"total_revenue"`
}

// BestSellers aggregates order items by variant: quantity sold plus
// revenue from the snapshotted price_at_time.
func (s *Service) BestSellers(ctx context.Context, limit int) ([]BestSeller, error) {
	if limit <= 0 {
		limit = 5
	}

	var items []models.OrderItem
	if err := s.db.WithContext(ctx).
		Preload("ProductVariant.Product").
		Find(&items).Error; err != nil {
		return nil, err
	}

	type aggregate struct {
		variant models.ProductVariant
		sold    int32
		revenue decimal.Decimal
	}

	byVariant := make(map[int64]*aggregate)
	orderOfFirstSale := make([]int64, 0)
	for _, item := range items {
		if item.ProductVariant == nil {
			continue
		}

		agg, ok := byVariant[item.ProductVariantID]
		if !ok {
			agg = &aggregate{variant: *item.ProductVariant}
			byVariant[item.ProductVariantID] = agg
			orderOfFirstSale = append(orderOfFirstSale, item.ProductVariantID)
		}

		agg.sold += item.Quantity
		price, err := decimal.NewFromString(item.PriceAtTime)
		if err == nil {
			agg.revenue = agg.revenue.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		}
	}

	sellers := make([]BestSeller, 0, len(byVariant))
	for _, id := range orderOfFirstSale {
		agg := byVariant[id]
		sellers = append(sellers, BestSeller{
			ProductVariant: agg.variant,
			TotalSold:      agg.sold,
			TotalRevenue:   agg.revenue.StringFixed(2),
		})
	}

	for i := 0; i < len(sellers); i++ {
		for j := i + 1; j < len(sellers); j++ {
			if sellers[j].TotalSold > sellers[i].TotalSold {
				sellers[i], sellers[j] = sellers[j], sellers[i]
			}
		}
	}

	if len(sellers) > limit {
		sellers = sellers[:limit]
	}
	return sellers, nil
}

// -- Pub/Sub --

type OrderEvent struct {
	EventType   string             `json:"event_type"`
	OrderID     int64              `json:"order_id"`
	Status      models.OrderStatus `json:"status,omitempty"`
	TotalAmount string             `json:"total_amount,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

func (s *Service) publishOrderEvent(ctx context.Context, event OrderEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := fmt.Sprintf("shop:events:%s", event.EventType)
	if err := s.redis.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := s.redis.Publish(ctx, "shop:events:all", eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}
