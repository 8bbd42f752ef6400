package service

import (
	"context"
	"math/rand"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bazaarhq/storefront/internal/domain"
	apperrors "github.com/bazaarhq/storefront/pkg/errors"
)

func newTestVariantService(variants *mockVariantRepository, products *mockProductRepository) *VariantService {
	return NewVariantService(variants, products, newTestProducer(), newTestLogger(), rand.New(rand.NewSource(42)))
}

// --- CreateVariant ---

func TestCreateVariant_GeneratesSKU(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-64ab12cd").Return(&domain.Product{ID: "prod-64ab12cd", Price: 1000}, nil)
	variants.On("Create", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	v, err := svc.CreateVariant(ctx, &CreateVariantInput{
		ProductID:  "prod-64ab12cd",
		Name:       "Classic Tee",
		Attributes: map[string]string{"color": "Red", "size": "M"},
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CT-RED-M-12CD-\d{3}$`), v.SKU)
	assert.False(t, v.SKUEdited)
}

func TestCreateVariant_ManualSKUMarksEdited(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", Price: 1000}, nil)
	variants.On("Create", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	v, err := svc.CreateVariant(ctx, &CreateVariantInput{
		ProductID: "p1",
		Name:      "Classic Tee",
		SKU:       "MY-CUSTOM-SKU",
	})
	require.NoError(t, err)
	assert.Equal(t, "MY-CUSTOM-SKU", v.SKU)
	assert.True(t, v.SKUEdited)
}

func TestCreateVariant_UnknownProduct(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "p-gone").Return(nil, apperrors.NotFound("product", "p-gone"))

	_, err := svc.CreateVariant(ctx, &CreateVariantInput{ProductID: "p-gone", Name: "Tee"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	variants.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateVariant_AsDefaultClearsSiblings(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	products.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", Price: 1000}, nil)
	variants.On("Create", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)
	variants.On("SetDefault", ctx, "p1", mock.AnythingOfType("string")).Return(nil)

	v, err := svc.CreateVariant(ctx, &CreateVariantInput{ProductID: "p1", Name: "Tee", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, v.IsDefault)
	variants.AssertExpectations(t)
}

// --- UpdateVariant SKU regeneration ---

func TestUpdateVariant_NameChangeRegeneratesSKU(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("GetByID", ctx, "v1").Return(&domain.Variant{
		ID:        "v1",
		ProductID: "prod-64ab12cd",
		Name:      "Classic Tee",
		SKU:       "CT-OLD-12CD-001",
	}, nil)
	variants.On("Update", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	v, err := svc.UpdateVariant(ctx, "v1", &UpdateVariantInput{Name: strPtr("Premium Hoodie")})
	require.NoError(t, err)
	assert.NotEqual(t, "CT-OLD-12CD-001", v.SKU)
	assert.Regexp(t, regexp.MustCompile(`^PH-`), v.SKU)
}

func TestUpdateVariant_EditedSKUSuppressesRegeneration(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("GetByID", ctx, "v1").Return(&domain.Variant{
		ID:        "v1",
		ProductID: "prod-64ab12cd",
		Name:      "Classic Tee",
		SKU:       "MY-CUSTOM-SKU",
		SKUEdited: true,
	}, nil)
	variants.On("Update", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	v, err := svc.UpdateVariant(ctx, "v1", &UpdateVariantInput{
		Name:       strPtr("Premium Hoodie"),
		Attributes: map[string]string{"color": "Black"},
	})
	require.NoError(t, err)
	assert.Equal(t, "MY-CUSTOM-SKU", v.SKU)
}

func TestUpdateVariant_ManualSKUSetsEditedFlag(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("GetByID", ctx, "v1").Return(&domain.Variant{
		ID:        "v1",
		ProductID: "p1",
		Name:      "Classic Tee",
		SKU:       "CT-RED-001",
	}, nil)
	variants.On("Update", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	v, err := svc.UpdateVariant(ctx, "v1", &UpdateVariantInput{SKU: strPtr("HAND-PICKED")})
	require.NoError(t, err)
	assert.Equal(t, "HAND-PICKED", v.SKU)
	assert.True(t, v.SKUEdited)
}

func TestUpdateVariant_PriceOnlyKeepsSKU(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("GetByID", ctx, "v1").Return(&domain.Variant{
		ID:        "v1",
		ProductID: "p1",
		Name:      "Classic Tee",
		SKU:       "CT-RED-001",
	}, nil)
	variants.On("Update", ctx, mock.AnythingOfType("*domain.Variant")).Return(nil)

	v, err := svc.UpdateVariant(ctx, "v1", &UpdateVariantInput{Price: int64Ptr(2500)})
	require.NoError(t, err)
	assert.Equal(t, "CT-RED-001", v.SKU)
}

// --- SetDefaultVariant ---

func TestSetDefaultVariant_Success(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("GetByID", ctx, "v2").Return(&domain.Variant{ID: "v2", ProductID: "p1"}, nil)
	variants.On("SetDefault", ctx, "p1", "v2").Return(nil)
	variants.On("ListByProduct", ctx, "p1").Return([]domain.Variant{
		{ID: "v1", ProductID: "p1"},
		{ID: "v2", ProductID: "p1", IsDefault: true},
	}, nil)

	result, err := svc.SetDefaultVariant(ctx, "p1", "v2")
	require.NoError(t, err)

	defaults := 0
	for _, v := range result {
		if v.IsDefault {
			defaults++
			assert.Equal(t, "v2", v.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSetDefaultVariant_WrongProduct(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("GetByID", ctx, "v2").Return(&domain.Variant{ID: "v2", ProductID: "p-other"}, nil)

	_, err := svc.SetDefaultVariant(ctx, "p1", "v2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	variants.AssertNotCalled(t, "SetDefault", mock.Anything, mock.Anything, mock.Anything)
}

// --- ListVariants ---

// The shared fetch must survive the first caller cancelling its request.
func TestListVariants_FetchDetachedFromCallerCancel(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)

	variants.On("ListByProduct", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), "p1").Return([]domain.Variant{{ID: "v1", ProductID: "p1"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.ListVariants(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	variants.AssertExpectations(t)
}

// --- ResolveDefault ---

func TestResolveDefaultService_FetchOrderFallback(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("ListByProduct", mock.Anything, "p1").Return([]domain.Variant{
		{ID: "v9"}, {ID: "v1"}, {ID: "v5"},
	}, nil)

	v, err := svc.ResolveDefault(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "v9", v.ID)
}

func TestResolveDefaultService_NoVariants(t *testing.T) {
	variants := new(mockVariantRepository)
	products := new(mockProductRepository)
	svc := newTestVariantService(variants, products)
	ctx := context.Background()

	variants.On("ListByProduct", mock.Anything, "p1").Return([]domain.Variant{}, nil)

	v, err := svc.ResolveDefault(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, v)
}

// --- keyedMutex ---

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("v1")
			defer km.Unlock("v1")
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	// All entries released.
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}
