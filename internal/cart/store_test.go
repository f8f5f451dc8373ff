package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStore(client), mr
}

func TestLoadMissingCartIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	lines := store.Load(ctx, "nobody")
	assert.Empty(t, lines)
}

func TestLoadCorruptPayloadIsEmpty(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("cart:s1", "{not json"))

	lines := store.Load(ctx, "s1")
	assert.Empty(t, lines)
}

func TestAddItemPersistsImmediately(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 2, Size: "M", Color: "black"})
	require.NoError(t, err)

	// A fresh load must see the mutation: the cart survives restarts.
	assert.True(t, mr.Exists("cart:s1"))
	lines := store.Load(ctx, "s1")
	require.Len(t, lines, 1)
	assert.Equal(t, int32(2), lines[0].Quantity)
	assert.Equal(t, "M", lines[0].Size)
}

func TestAddItemMergesSameVariant(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 2})
	require.NoError(t, err)
	lines, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, int32(5), lines[0].Quantity)
}

func TestAddItemDifferentVariantAppends(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 1})
	require.NoError(t, err)
	lines, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 12, Quantity: 1})
	require.NoError(t, err)

	assert.Len(t, lines, 2)
}

func TestAddItemCoercesZeroQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	lines, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 0})
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, int32(1), lines[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 1})
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "s1", Line{ProductID: 2, VariantID: 21, Quantity: 1})
	require.NoError(t, err)

	lines, err := store.RemoveItem(ctx, "s1", 1, 11)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)
}

func TestRemoveAbsentItemIsNoop(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 1})
	require.NoError(t, err)

	lines, err := store.RemoveItem(ctx, "s1", 9, 99)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestUpdateQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 1})
	require.NoError(t, err)

	lines, err := store.UpdateQuantity(ctx, "s1", 1, 11, 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int32(7), lines[0].Quantity)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 3})
	require.NoError(t, err)

	lines, err := store.UpdateQuantity(ctx, "s1", 1, 11, 0)
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.Empty(t, store.Load(ctx, "s1"))
}

func TestClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.Empty(t, store.Load(ctx, "s1"))
}

func TestTotalItems(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, int32(0), store.TotalItems(ctx, "s1"))

	_, err := store.AddItem(ctx, "s1", Line{ProductID: 1, VariantID: 11, Quantity: 2})
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "s1", Line{ProductID: 2, VariantID: 21, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, int32(5), store.TotalItems(ctx, "s1"))
}

func TestSessionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "alice", Line{ProductID: 1, VariantID: 11, Quantity: 1})
	require.NoError(t, err)

	assert.Empty(t, store.Load(ctx, "bob"))
}

func TestDeliveryCostRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "0.00", store.LastDeliveryCost(ctx, "s1"))

	require.NoError(t, store.SaveDeliveryCost(ctx, "s1", "7.50"))
	assert.Equal(t, "7.50", store.LastDeliveryCost(ctx, "s1"))
}
