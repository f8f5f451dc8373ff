package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"souqra-system/internal/cart"
	"souqra-system/internal/catalog"
	"souqra-system/internal/database/models"
	"souqra-system/internal/orders"
	"souqra-system/internal/pricing"
)

// StorefrontHandler serves the public shop API: catalog browsing, the
// session cart and checkout. Carts are keyed by the X-Cart-Session
// header, an opaque ID minted by the storefront client.
type StorefrontHandler struct {
	catalog *catalog.Service
	cart    *cart.Store
	orders  *orders.Service
}

func NewStorefrontHandler(catalogService *catalog.Service, cartStore *cart.Store, orderService *orders.Service) *StorefrontHandler {
	return &StorefrontHandler{
		catalog: catalogService,
		cart:    cartStore,
		orders:  orderService,
	}
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func cartSession(c *gin.Context) (string, bool) {
	sessionID := c.GetHeader("X-Cart-Session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("X-Cart-Session header required"))
		return "", false
	}
	return sessionID, true
}

// --- Catalog ---

func (h *StorefrontHandler) ListProducts(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	products, err := h.catalog.GetProducts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list products"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, gin.H{
		"total": len(products),
	}))
}

func (h *StorefrontHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	product, err := h.catalog.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to get product"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *StorefrontHandler) ListCategories(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list categories"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

func (h *StorefrontHandler) ListProductsByCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	products, err := h.catalog.GetProductsByCategory(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list products"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, gin.H{
		"total": len(products),
	}))
}

func (h *StorefrontHandler) GetDeliverySettings(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	settings, err := h.catalog.GetDeliverySettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to get delivery settings"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Delivery settings retrieved successfully", settings))
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID int64  `json:"variant_id" binding:"required"`
	Quantity  int32  `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type UpdateCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	VariantID int64 `json:"variant_id" binding:"required"`
	Quantity  int32 `json:"quantity"`
}

type CartLineView struct {
	cart.Line
	Product   *models.Product `json:"product,omitempty"`
	UnitPrice string          `json:"unit_price"`
	LineTotal string          `json:"line_total"`
}

type CartView struct {
	Lines       []CartLineView `json:"lines"`
	TotalItems  int32          `json:"total_items"`
	Subtotal    string         `json:"subtotal"`
	DeliveryFee string         `json:"delivery_fee"`
	Total       string         `json:"total"`
}

// cartView resolves the stored lines against the catalog and prices the
// whole cart. Lines whose product or variant no longer resolves stay in
// the cart but contribute nothing to the totals.
func (h *StorefrontHandler) cartView(ctx context.Context, sessionID string, lines []cart.Line) (CartView, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	productsByID, err := h.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return CartView{}, err
	}

	view := CartView{Lines: make([]CartLineView, 0, len(lines))}
	for _, l := range lines {
		lineView := CartLineView{Line: l, UnitPrice: "0.00", LineTotal: "0.00"}
		if product, ok := productsByID[l.ProductID]; ok {
			p := product
			lineView.Product = &p
			lineView.UnitPrice = pricing.EffectiveUnitPrice(product).StringFixed(2)
			lineView.LineTotal = pricing.LineTotal(l, &p).StringFixed(2)
		}
		view.Lines = append(view.Lines, lineView)
		view.TotalItems += l.Quantity
	}

	subtotal := pricing.Subtotal(lines, productsByID)

	settings, err := h.catalog.GetDeliverySettings(ctx)
	if err != nil {
		settings = nil
	}
	deliveryFee := pricing.DeliveryCost(subtotal, settings)

	view.Subtotal = subtotal.StringFixed(2)
	view.DeliveryFee = deliveryFee.StringFixed(2)
	view.Total = subtotal.Add(deliveryFee).StringFixed(2)

	_ = h.cart.SaveDeliveryCost(ctx, sessionID, view.DeliveryFee)

	return view, nil
}

func (h *StorefrontHandler) respondWithCart(c *gin.Context, ctx context.Context, sessionID string, lines []cart.Line, message string) {
	view, err := h.cartView(ctx, sessionID, lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to price cart"))
		return
	}
	c.JSON(http.StatusOK, successResponse(message, view))
}

func (h *StorefrontHandler) GetCart(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	lines := h.cart.Load(ctx, sessionID)
	h.respondWithCart(c, ctx, sessionID, lines, "Cart retrieved successfully")
}

func (h *StorefrontHandler) AddCartItem(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := h.catalog.GetProductByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to resolve product"))
		return
	}

	lines, err := h.cart.AddItem(ctx, sessionID, cart.Line{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to update cart"))
		return
	}

	h.respondWithCart(c, ctx, sessionID, lines, "Item added to cart")
}

func (h *StorefrontHandler) UpdateCartItem(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	lines, err := h.cart.UpdateQuantity(ctx, sessionID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to update cart"))
		return
	}

	h.respondWithCart(c, ctx, sessionID, lines, "Cart updated")
}

func (h *StorefrontHandler) RemoveCartItem(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product_id"))
		return
	}
	variantID, err := strconv.ParseInt(c.Query("variant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid variant_id"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	lines, err := h.cart.RemoveItem(ctx, sessionID, productID, variantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to update cart"))
		return
	}

	h.respondWithCart(c, ctx, sessionID, lines, "Item removed from cart")
}

func (h *StorefrontHandler) ClearCart(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.cart.Clear(ctx, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to clear cart"))
		return
	}

	h.respondWithCart(c, ctx, sessionID, []cart.Line{}, "Cart cleared")
}

// --- Checkout ---

type CheckoutRequest struct {
	CustomerName   string  `json:"customer_name" binding:"required"`
	CustomerEmail  string  `json:"customer_email" binding:"required,email"`
	CustomerPhone  string  `json:"customer_phone" binding:"required"`
	AlternatePhone *string `json:"alternate_phone,omitempty"`
	Address        string  `json:"address" binding:"required"`
	Governorate    string  `json:"governorate" binding:"required"`
	Delegation     string  `json:"delegation" binding:"required"`
	ZipCode        *string `json:"zip_code,omitempty"`
}

// Checkout turns the session cart into a pending order and clears the
// cart on success.
func (h *StorefrontHandler) Checkout(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	lines := h.cart.Load(ctx, sessionID)

	order, err := h.orders.Checkout(ctx, orders.CheckoutInput{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		AlternatePhone: req.AlternatePhone,
		Address:        req.Address,
		Governorate:    req.Governorate,
		Delegation:     req.Delegation,
		ZipCode:        req.ZipCode,
		Lines:          lines,
	})
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrEmptyOrder):
			c.JSON(http.StatusBadRequest, errorResponse("Cart is empty"))
		case errors.Is(err, orders.ErrVariantNotFound):
			c.JSON(http.StatusUnprocessableEntity, errorResponse("Cart contains unavailable items"))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to place order"))
		}
		return
	}

	if err := h.cart.Clear(ctx, sessionID); err != nil {
		// The order exists; a stale cart is recoverable by the client.
		c.JSON(http.StatusCreated, successResponse("Order placed, cart could not be cleared", order))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order placed successfully", order))
}
