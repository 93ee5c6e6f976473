package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/classic-carry/internal/catalog"
	"github.com/jcmexdev/classic-carry/internal/pkg/cache"
)

const sid = "session-1"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(opts ...Option) (*Store, cache.Cache) {
	c := cache.NewMemoryCache("test")
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewStore(c, opts...), c
}

func capProduct() catalog.Product {
	return catalog.NewProduct(catalog.Product{
		ID:        "cap-1",
		Name:      "Summer Breeze Cap",
		Price:     2799,
		MainImage: "assets/images/caps/1.png",
		Colors:    []string{"Natural", "Beige"},
		InStock:   true,
	})
}

func stored(t *testing.T, c cache.Cache) string {
	t.Helper()
	raw, err := c.Get(context.Background(), c.GenerateKey(StorageKey, sid))
	require.NoError(t, err)
	return raw
}

func TestAdd_NewLineThenIncrement(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()

	items := s.Add(ctx, sid, capProduct(), "", 1)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "Natural", items[0].SelectedColor)
	assert.Equal(t, 1, s.TotalItemCount(ctx, sid))
	assert.Equal(t, int64(2799), s.Subtotal(ctx, sid))

	items = s.Add(ctx, sid, capProduct(), "", 1)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(5598), s.Subtotal(ctx, sid))

	assert.JSONEq(t,
		`[{"id":"cap-1","name":"Summer Breeze Cap","price":2799,"img":"assets/images/caps/1.png","qty":2,"selectedColor":"Natural"}]`,
		stored(t, c))
}

func TestAdd_DistinctColorsAreDistinctLines(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.Add(ctx, sid, capProduct(), "Natural", 1)
	items := s.Add(ctx, sid, capProduct(), "Beige", 2)

	require.Len(t, items, 2)
	assert.Equal(t, "Natural", items[0].SelectedColor)
	assert.Equal(t, "Beige", items[1].SelectedColor)
	assert.Equal(t, 3, s.TotalItemCount(ctx, sid))
}

func TestAdd_UnknownColorFallsBackToSelection(t *testing.T) {
	s, _ := newTestStore()
	items := s.Add(context.Background(), sid, capProduct(), "Purple", 0)
	require.Len(t, items, 1)
	assert.Equal(t, "Natural", items[0].SelectedColor)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAdd_SnapshotsPrice(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	p := capProduct()

	s.Add(ctx, sid, p, "", 1)
	p.Price = 9999
	items := s.Add(ctx, sid, p, "", 1)

	require.Len(t, items, 1)
	assert.Equal(t, int64(2799), items[0].Price)
}

func TestSetQuantity(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	s.Add(ctx, sid, capProduct(), "", 1)

	items := s.SetQuantity(ctx, sid, "cap-1", "", 5)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)

	items = s.SetQuantity(ctx, sid, "cap-1", "Natural", 0)
	assert.Empty(t, items)
	assert.Equal(t, 0, s.TotalItemCount(ctx, sid))
}

func TestSetQuantity_UnknownItemLeavesCart(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	s.Add(ctx, sid, capProduct(), "", 1)

	items := s.SetQuantity(ctx, sid, "missing", "", 3)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	s.Add(ctx, sid, capProduct(), "Natural", 1)
	s.Add(ctx, sid, capProduct(), "Beige", 1)

	items := s.Remove(ctx, sid, "cap-1", "Beige")
	require.Len(t, items, 1)
	assert.Equal(t, "Natural", items[0].SelectedColor)

	s.Add(ctx, sid, capProduct(), "Beige", 1)
	items = s.Remove(ctx, sid, "cap-1", "")
	assert.Empty(t, items)
}

func TestClear(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()
	s.Add(ctx, sid, capProduct(), "", 3)

	s.Clear(ctx, sid)
	assert.Empty(t, s.Load(ctx, sid))
	assert.Equal(t, "[]", stored(t, c))
}

func TestLoad_CorruptedStorageResetsToEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"malformed json": "{not json",
		"object":         `{"id":"cap-1"}`,
		"string":         `"cart"`,
		"number":         `42`,
		"null":           `null`,
	} {
		t.Run(name, func(t *testing.T) {
			s, c := newTestStore()
			ctx := context.Background()
			require.NoError(t, c.Set(ctx, c.GenerateKey(StorageKey, sid), raw, 0))

			assert.Empty(t, s.Load(ctx, sid))
			assert.Equal(t, "[]", stored(t, c))
		})
	}
}

func TestLoad_MissingKeyInitializesStorage(t *testing.T) {
	s, c := newTestStore()
	assert.Empty(t, s.Load(context.Background(), sid))
	assert.Equal(t, "[]", stored(t, c))
}

func TestLoad_DropsInvalidItemsAndMergesDuplicates(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()
	raw := `[
		{"id":"a","name":"A","price":100,"img":"a.png","qty":2},
		{"id":"b","name":"B","price":"100","img":"b.png","qty":1},
		{"id":"c","name":"C","price":50,"img":"c.png","qty":0},
		{"name":"D","price":50,"img":"d.png"},
		null,
		7,
		{"id":"a","name":"A","price":100,"img":"a.png","qty":1},
		{"id":"e","name":"E","price":10,"img":"e.png"}
	]`
	require.NoError(t, c.Set(ctx, c.GenerateKey(StorageKey, sid), raw, 0))

	items := s.Load(ctx, sid)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "e", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)

	assert.JSONEq(t,
		`[{"id":"a","name":"A","price":100,"img":"a.png","qty":3},{"id":"e","name":"E","price":10,"img":"e.png","qty":1}]`,
		stored(t, c))
}

func TestLoad_KeepsVariant(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()
	raw := `[{"id":"a","name":"A","price":100,"img":"a.png","qty":1,"selectedColor":"Red","selectedTheme":"Gold"}]`
	require.NoError(t, c.Set(ctx, c.GenerateKey(StorageKey, sid), raw, 0))

	items := s.Load(ctx, sid)
	require.Len(t, items, 1)
	assert.Equal(t, "Red", items[0].SelectedColor)
	assert.Equal(t, "Gold", items[0].SelectedVariant)
	assert.JSONEq(t, raw, stored(t, c))
}

type failingCache struct {
	cache.Cache
}

func (failingCache) Get(context.Context, string) (string, error) {
	return "", errors.New("storage disabled")
}

func (failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("quota exceeded")
}

func TestStorageFailuresDegradeToEmpty(t *testing.T) {
	s := NewStore(failingCache{cache.NewMemoryCache("test")}, WithLogger(quietLogger()))
	ctx := context.Background()

	assert.Empty(t, s.Load(ctx, sid))
	items := s.Add(ctx, sid, capProduct(), "", 1)
	assert.Len(t, items, 1)
	assert.Equal(t, 0, s.TotalItemCount(ctx, sid))
	assert.Equal(t, int64(0), s.GrandTotal(ctx, sid))
	s.Clear(ctx, sid)
}

func TestBadgeRefreshedOnSave(t *testing.T) {
	var counts []int
	s, _ := newTestStore(WithBadge(func(_ context.Context, session string, n int) {
		assert.Equal(t, sid, session)
		counts = append(counts, n)
	}))
	ctx := context.Background()

	s.Add(ctx, sid, capProduct(), "", 2)
	s.SetQuantity(ctx, sid, "cap-1", "", 5)
	s.Clear(ctx, sid)

	// the first entry comes from normalizing the missing key on first load
	assert.Equal(t, []int{0, 2, 5, 0}, counts)
}

func TestDeliveryScenarios(t *testing.T) {
	ctx := context.Background()
	pricing := Pricing{DeliveryFee: 300, FreeDeliveryThreshold: 4000}

	t.Run("empty cart has no delivery", func(t *testing.T) {
		s, _ := newTestStore(WithPricing(pricing))
		assert.Equal(t, int64(0), s.DeliveryCharge(ctx, sid))
		assert.Equal(t, int64(0), s.GrandTotal(ctx, sid))
	})

	t.Run("below threshold", func(t *testing.T) {
		s, _ := newTestStore(WithPricing(pricing))
		s.AddItem(ctx, sid, LineItem{ID: "x", Name: "X", Price: 3500, Image: "x.png", Quantity: 1})
		assert.Equal(t, int64(300), s.DeliveryCharge(ctx, sid))
		assert.Equal(t, int64(3800), s.GrandTotal(ctx, sid))
		assert.False(t, s.QualifiesForFreeDelivery(ctx, sid))
	})

	t.Run("above threshold", func(t *testing.T) {
		s, _ := newTestStore(WithPricing(pricing))
		s.AddItem(ctx, sid, LineItem{ID: "x", Name: "X", Price: 4500, Image: "x.png", Quantity: 1})
		assert.Equal(t, int64(0), s.DeliveryCharge(ctx, sid))
		assert.Equal(t, int64(4500), s.GrandTotal(ctx, sid))
		assert.True(t, s.QualifiesForFreeDelivery(ctx, sid))
	})

	t.Run("exactly at threshold", func(t *testing.T) {
		s, _ := newTestStore(WithPricing(pricing))
		s.AddItem(ctx, sid, LineItem{ID: "x", Name: "X", Price: 2000, Image: "x.png", Quantity: 2})
		assert.Equal(t, int64(0), s.DeliveryCharge(ctx, sid))
	})
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	products := []catalog.Product{
		capProduct(),
		catalog.NewProduct(catalog.Product{ID: "wal-1", Name: "Bi-Fold", Price: 4999, MainImage: "w.png", Colors: []string{"Black", "Brown"}}),
		catalog.NewProduct(catalog.Product{ID: "hot-6", Name: "Cardholder", Price: 2499, MainImage: "h.png"}),
	}

	for i := 0; i < 500; i++ {
		p := products[rng.Intn(len(products))]
		color := ""
		if rng.Intn(2) == 0 {
			color = p.Colors[rng.Intn(len(p.Colors))]
		}
		switch rng.Intn(3) {
		case 0:
			s.Add(ctx, sid, p, color, rng.Intn(4))
		case 1:
			s.Remove(ctx, sid, p.ID, color)
		case 2:
			s.SetQuantity(ctx, sid, p.ID, color, rng.Intn(6)-2)
		}

		items, dirty := decodeItems(stored(t, c))
		require.False(t, dirty, "stored cart must already be normalized")

		seen := map[string]bool{}
		var count int
		var subtotal int64
		for _, it := range items {
			require.GreaterOrEqual(t, it.Quantity, 1)
			key := it.ID + "|" + it.SelectedColor
			require.False(t, seen[key], "duplicate line %s", key)
			seen[key] = true
			count += it.Quantity
			subtotal += it.Price * int64(it.Quantity)
		}
		require.Equal(t, count, s.TotalItemCount(ctx, sid))
		require.Equal(t, subtotal, s.Subtotal(ctx, sid))
		require.Equal(t, s.Subtotal(ctx, sid)+s.DeliveryCharge(ctx, sid), s.GrandTotal(ctx, sid))
	}
}

func TestAddTwiceEqualsSetQuantityTwo(t *testing.T) {
	ctx := context.Background()

	a, ca := newTestStore()
	a.Add(ctx, sid, capProduct(), "Beige", 1)
	a.Add(ctx, sid, capProduct(), "Beige", 1)

	b, cb := newTestStore()
	b.Add(ctx, sid, capProduct(), "Beige", 1)
	b.SetQuantity(ctx, sid, "cap-1", "Beige", 2)

	assert.JSONEq(t, stored(t, ca), stored(t, cb))
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(ctx, sid, capProduct(), "", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.TotalItemCount(ctx, sid))
}

func TestAdd_OversizedQuantityIsClamped(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()

	items := s.Add(ctx, sid, capProduct(), "", 4_000_000_000_000_000)
	require.Len(t, items, 1)
	assert.Equal(t, MaxQuantity, items[0].Quantity)

	reloaded := s.Load(ctx, sid)
	require.Len(t, reloaded, 1)
	assert.Equal(t, MaxQuantity, reloaded[0].Quantity)
	assert.Equal(t, int64(2799)*MaxQuantity, s.Subtotal(ctx, sid))
	assert.JSONEq(t,
		`[{"id":"cap-1","name":"Summer Breeze Cap","price":2799,"img":"assets/images/caps/1.png","qty":99,"selectedColor":"Natural"}]`,
		stored(t, c))
}

func TestAdd_MergePastCapKeepsLine(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	s.Add(ctx, sid, capProduct(), "", math.MaxInt32)
	items := s.Add(ctx, sid, capProduct(), "", 1)
	require.Len(t, items, 1)
	assert.Equal(t, MaxQuantity, items[0].Quantity)

	reloaded := s.Load(ctx, sid)
	require.Len(t, reloaded, 1)
	assert.Equal(t, MaxQuantity, s.TotalItemCount(ctx, sid))
	assert.Equal(t, int64(2799)*MaxQuantity, s.GrandTotal(ctx, sid))
}

func TestSetQuantity_Clamped(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	s.Add(ctx, sid, capProduct(), "", 1)

	items := s.SetQuantity(ctx, sid, "cap-1", "", math.MaxInt)
	require.Len(t, items, 1)
	assert.Equal(t, MaxQuantity, items[0].Quantity)
}

func TestLoad_ClampsStoredQuantity(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()
	raw := `[
		{"id":"a","name":"A","price":100,"img":"a.png","qty":2147483648},
		{"id":"b","name":"B","price":100,"img":"b.png","qty":60},
		{"id":"b","name":"B","price":100,"img":"b.png","qty":60},
		{"id":"z","name":"Z","price":1e300,"img":"z.png","qty":1}
	]`
	require.NoError(t, c.Set(ctx, c.GenerateKey(StorageKey, sid), raw, 0))

	items := s.Load(ctx, sid)
	require.Len(t, items, 2)
	assert.Equal(t, MaxQuantity, items[0].Quantity)
	assert.Equal(t, MaxQuantity, items[1].Quantity)
	assert.JSONEq(t,
		`[{"id":"a","name":"A","price":100,"img":"a.png","qty":99},{"id":"b","name":"B","price":100,"img":"b.png","qty":99}]`,
		stored(t, c))
}
