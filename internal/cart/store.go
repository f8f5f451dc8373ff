package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	CART_KEY_PREFIX     = "cart:"
	DELIVERY_KEY_SUFFIX = ":delivery"
	CART_TTL            = 30 * 24 * time.Hour
)

// Line is a single cart entry, uniquely keyed by (ProductID, VariantID).
// It carries identity only; prices are resolved against the catalog at
// read time.
type Line struct {
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int32  `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// Store persists per-session carts in Redis. Every mutation is
// write-through: the full cart is saved before the call returns.
type Store struct {
	redis *redis.Client
	mu    sync.Mutex
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redis: redisClient,
	}
}

func cartKey(sessionID string) string {
	return CART_KEY_PREFIX + sessionID
}

func deliveryKey(sessionID string) string {
	return CART_KEY_PREFIX + sessionID + DELIVERY_KEY_SUFFIX
}

// Load reads the persisted cart. A missing or unparsable payload yields
// an empty cart, never an error.
func (s *Store) Load(ctx context.Context, sessionID string) []Line {
	payload, err := s.redis.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		return []Line{}
	}

	var lines []Line
	if err := json.Unmarshal(payload, &lines); err != nil {
		return []Line{}
	}
	return lines
}

func (s *Store) persist(ctx context.Context, sessionID string, lines []Line) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.redis.Set(ctx, cartKey(sessionID), payload, CART_TTL).Err(); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

// AddItem merges the incoming line into the cart: an existing line with
// the same (ProductID, VariantID) has its quantity incremented,
// otherwise the line is appended.
func (s *Store) AddItem(ctx context.Context, sessionID string, line Line) ([]Line, error) {
	if line.Quantity < 1 {
		line.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.Load(ctx, sessionID)
	merged := false
	for i := range lines {
		if lines[i].ProductID == line.ProductID && lines[i].VariantID == line.VariantID {
			lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, line)
	}

	if err := s.persist(ctx, sessionID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// RemoveItem drops the matching line. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, sessionID string, productID, variantID int64) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(ctx, sessionID, productID, variantID)
}

func (s *Store) removeLocked(ctx context.Context, sessionID string, productID, variantID int64) ([]Line, error) {
	lines := s.Load(ctx, sessionID)
	kept := lines[:0]
	for _, l := range lines {
		if l.ProductID == productID && l.VariantID == variantID {
			continue
		}
		kept = append(kept, l)
	}

	if err := s.persist(ctx, sessionID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// UpdateQuantity overwrites the line's quantity. A quantity below 1
// behaves exactly like RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, sessionID string, productID, variantID int64, quantity int32) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		return s.removeLocked(ctx, sessionID, productID, variantID)
	}

	lines := s.Load(ctx, sessionID)
	for i := range lines {
		if lines[i].ProductID == productID && lines[i].VariantID == variantID {
			lines[i].Quantity = quantity
			break
		}
	}

	if err := s.persist(ctx, sessionID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persist(ctx, sessionID, []Line{})
}

// TotalItems sums quantities across all lines, recomputed on every read.
func (s *Store) TotalItems(ctx context.Context, sessionID string) int32 {
	var total int32
	for _, l := range s.Load(ctx, sessionID) {
		total += l.Quantity
	}
	return total
}

// SaveDeliveryCost keeps the last computed delivery fee beside the cart
// so the storefront can render it without re-resolving settings.
func (s *Store) SaveDeliveryCost(ctx context.Context, sessionID string, cost string) error {
	return s.redis.Set(ctx, deliveryKey(sessionID), cost, CART_TTL).Err()
}

func (s *Store) LastDeliveryCost(ctx context.Context, sessionID string) string {
	cost, err := s.redis.Get(ctx, deliveryKey(sessionID)).Result()
	if err != nil {
		return "0.00"
	}
	return cost
}
