package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"souqra-system/config"
	"souqra-system/internal/catalog"
	"souqra-system/internal/database/models"
	"souqra-system/internal/orders"
	"souqra-system/internal/utils"
)

const tokenTTL = 24 * time.Hour

// AdminHandler serves the back-office API behind JWT auth: catalog
// management, order lifecycle and the dashboard.
type AdminHandler struct {
	auth    config.AuthConfig
	catalog *catalog.Service
	orders  *orders.Service
}

func NewAdminHandler(authConfig config.AuthConfig, catalogService *catalog.Service, orderService *orders.Service) *AdminHandler {
	return &AdminHandler{
		auth:    authConfig,
		catalog: catalogService,
		orders:  orderService,
	}
}

// --- Authentication ---

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if req.Username != h.auth.AdminUsername || req.Password != h.auth.AdminPassword {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
		return
	}

	token, exp, err := utils.GenerateToken(req.Username, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
	}))
}

// --- Products ---

type VariantPayload struct {
	ID       int64  `json:"id"`
	Size     string `json:"size" binding:"required"`
	Color    string `json:"color" binding:"required"`
	Stock    int32  `json:"stock"`
	SKU      string `json:"sku" binding:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type ProductPayload struct {
	NameEN        string  `json:"name_en" binding:"required"`
	NameFR        string  `json:"name_fr" binding:"required"`
	NameAR        string  `json:"name_ar" binding:"required"`
	DescriptionEN *string `json:"description_en,omitempty"`
	DescriptionFR *string `json:"description_fr,omitempty"`
	DescriptionAR *string `json:"description_ar,omitempty"`

	OriginalPrice   string `json:"original_price" binding:"required"`
	SellingPrice    string `json:"selling_price" binding:"required"`
	DiscountPercent string `json:"discount_percent"`

	Gender     *string  `json:"gender,omitempty"`
	Material   *string  `json:"material,omitempty"`
	Brand      *string  `json:"brand,omitempty"`
	Images     []string `json:"images"`
	CategoryID int64    `json:"category_id" binding:"required"`
	IsActive   *bool    `json:"is_active,omitempty"`

	Variants []VariantPayload `json:"variants" binding:"required,min=1,dive"`
}

func (p ProductPayload) toModel(id int64) models.Product {
	discount := p.DiscountPercent
	if discount == "" {
		discount = "0"
	}
	isActive := true
	if p.IsActive != nil {
		isActive = *p.IsActive
	}

	variants := make([]models.ProductVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		variantActive := true
		if v.IsActive != nil {
			variantActive = *v.IsActive
		}
		variants = append(variants, models.ProductVariant{
			ID:       v.ID,
			Size:     v.Size,
			Color:    v.Color,
			Stock:    v.Stock,
			SKU:      v.SKU,
			IsActive: variantActive,
		})
	}

	return models.Product{
		ID:              id,
		NameEN:          p.NameEN,
		NameFR:          p.NameFR,
		NameAR:          p.NameAR,
		DescriptionEN:   p.DescriptionEN,
		DescriptionFR:   p.DescriptionFR,
		DescriptionAR:   p.DescriptionAR,
		OriginalPrice:   p.OriginalPrice,
		SellingPrice:    p.SellingPrice,
		DiscountPercent: discount,
		Gender:          p.Gender,
		Material:        p.Material,
		Brand:           p.Brand,
		Images:          p.Images,
		CategoryID:      p.CategoryID,
		IsActive:        isActive,
		Variants:        variants,
	}
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var req ProductPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	product := req.toModel(0)
	if err := h.catalog.CreateProduct(ctx, &product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSKU) {
			c.JSON(http.StatusConflict, errorResponse("SKU already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to create product"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var req ProductPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	product := req.toModel(id)
	if err := h.catalog.UpdateProduct(ctx, &product); err != nil {
		switch {
		case errors.Is(err, catalog.ErrDuplicateSKU):
			c.JSON(http.StatusConflict, errorResponse("SKU already exists"))
		case errors.Is(err, catalog.ErrProductNotFound):
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to update product"))
		}
		return
	}

	c.JSON(http.StatusOK, successResponse("Product updated successfully", product))
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.catalog.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to delete product"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product deleted successfully", nil))
}

func (h *AdminHandler) DeleteVariant(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid variant ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.catalog.DeleteVariant(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrVariantNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Variant not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to delete variant"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Variant deleted successfully", nil))
}

type SetStockRequest struct {
	Stock *int32 `json:"stock" binding:"required"`
}

func (h *AdminHandler) SetVariantStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid variant ID"))
		return
	}

	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.catalog.SetVariantStock(ctx, id, *req.Stock); err != nil {
		if errors.Is(err, catalog.ErrVariantNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Variant not found"))
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock updated successfully", nil))
}

// --- Categories ---

type CategoryPayload struct {
	NameEN        string  `json:"name_en" binding:"required"`
	NameFR        string  `json:"name_fr" binding:"required"`
	NameAR        string  `json:"name_ar" binding:"required"`
	DescriptionEN *string `json:"description_en,omitempty"`
	DescriptionFR *string `json:"description_fr,omitempty"`
	DescriptionAR *string `json:"description_ar,omitempty"`
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req CategoryPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	category := models.Category{
		NameEN:        req.NameEN,
		NameFR:        req.NameFR,
		NameAR:        req.NameAR,
		DescriptionEN: req.DescriptionEN,
		DescriptionFR: req.DescriptionFR,
		DescriptionAR: req.DescriptionAR,
	}
	if err := h.catalog.CreateCategory(ctx, &category); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to create category"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	var req CategoryPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	category := models.Category{
		ID:            id,
		NameEN:        req.NameEN,
		NameFR:        req.NameFR,
		NameAR:        req.NameAR,
		DescriptionEN: req.DescriptionEN,
		DescriptionFR: req.DescriptionFR,
		DescriptionAR: req.DescriptionAR,
	}
	if err := h.catalog.UpdateCategory(ctx, &category); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Category not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to update category"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category updated successfully", category))
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.catalog.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Category not found"))
			return
		}
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category deleted successfully", nil))
}

// --- Orders ---

type ListOrdersQuery struct {
	Status *string `form:"status,omitempty"`
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	var status *models.OrderStatus
	if query.Status != nil && *query.Status != "" {
		s := models.OrderStatus(*query.Status)
		if !orders.ValidStatus(s) {
			c.JSON(http.StatusBadRequest, errorResponse("Unknown order status"))
			return
		}
		status = &s
	}

	ctx, cancel := requestContext()
	defer cancel()

	orderList, err := h.orders.List(ctx, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list orders"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orderList, gin.H{
		"total": len(orderList),
	}))
}

func (h *AdminHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	order, err := h.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Order not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to get order"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	order, err := h.orders.SetStatus(ctx, id, models.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, errorResponse("Order not found"))
		case errors.Is(err, orders.ErrInvalidTransition):
			c.JSON(http.StatusConflict, errorResponse(err.Error()))
		case errors.Is(err, orders.ErrInsufficientStock):
			c.JSON(http.StatusConflict, errorResponse(err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to update order status"))
		}
		return
	}

	c.JSON(http.StatusOK, successResponse("Order status updated successfully", order))
}

func (h *AdminHandler) DeleteOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Order not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to delete order"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Order deleted successfully", nil))
}

// --- Dashboard ---

func (h *AdminHandler) DashboardStats(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	revenue, err := h.orders.TotalRevenue(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to compute revenue"))
		return
	}

	totalOrders, err := h.orders.OrdersCount(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to count orders"))
		return
	}

	pendingStatus := models.OrderStatusPending
	pendingOrders, err := h.orders.List(ctx, &pendingStatus)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list pending orders"))
		return
	}

	products, err := h.catalog.GetProducts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to count products"))
		return
	}

	bestSellers, err := h.orders.BestSellers(ctx, 5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to compute best sellers"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Dashboard stats retrieved successfully", gin.H{
		"total_revenue":  revenue.StringFixed(2),
		"total_orders":   totalOrders,
		"pending_orders": len(pendingOrders),
		"total_products": len(products),
		"best_sellers":   bestSellers,
	}))
}

// --- Delivery settings ---

type DeliverySettingsPayload struct {
	MinOrderAmount string  `json:"min_order_amount" binding:"required"`
	DeliveryCost   string  `json:"delivery_cost" binding:"required"`
	IsActive       bool    `json:"is_active"`
	LogoURL        *string `json:"logo_url,omitempty"`
	LogoWidth      *int32  `json:"logo_width,omitempty"`
	LogoHeight     *int32  `json:"logo_height,omitempty"`
}

func (h *AdminHandler) UpdateDeliverySettings(c *gin.Context) {
	var req DeliverySettingsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	settings := models.DeliverySettings{
		MinOrderAmount: req.MinOrderAmount,
		DeliveryCost:   req.DeliveryCost,
		IsActive:       req.IsActive,
		LogoURL:        req.LogoURL,
		LogoWidth:      req.LogoWidth,
		LogoHeight:     req.LogoHeight,
	}
	if err := h.catalog.SaveDeliverySettings(ctx, &settings); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to save delivery settings"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Delivery settings saved successfully", settings))
}
