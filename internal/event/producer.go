package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bazaarhq/storefront/internal/domain"
	pkgkafka "github.com/bazaarhq/storefront/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicProductCreated    = "storefront.product.created"
	TopicProductUpdated    = "storefront.product.updated"
	TopicProductDeleted    = "storefront.product.deleted"
	TopicVariantDefaultSet = "storefront.variant.default_set"
	TopicCouponCreated     = "storefront.coupon.created"
	TopicCouponUpdated     = "storefront.coupon.updated"
	TopicCouponApplied     = "storefront.coupon.applied"
	TopicCartItemAdded     = "storefront.cart.item_added"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeVariant = "variant"
	AggregateTypeCoupon  = "coupon"
	AggregateTypeCart    = "cart"
)

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// ProductEventData is the payload for product lifecycle events.
type ProductEventData struct {
	ID           string   `json:"id"`
	ShopID       string   `json:"shop_id"`
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	CategoryRefs []string `json:"category_refs"`
	Status       string   `json:"status"`
}

// VariantDefaultSetData is the payload for a variant.default_set event.
type VariantDefaultSetData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
}

// CouponEventData is the payload for coupon lifecycle events.
type CouponEventData struct {
	ID       string `json:"id"`
	ShopID   string `json:"shop_id"`
	Code     string `json:"code"`
	Type     string `json:"type"`
	Value    int64  `json:"value"`
	IsActive bool   `json:"is_active"`
}

// CouponAppliedData is the payload for a coupon.applied event.
type CouponAppliedData struct {
	CouponID        string `json:"coupon_id"`
	UserID          string `json:"user_id"`
	OrderID         string `json:"order_id"`
	Code            string `json:"code"`
	DiscountApplied int64  `json:"discount_applied"`
}

// CartItemAddedData is the payload for a cart.item_added event.
type CartItemAddedData struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductCreated, product)
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductUpdated, product)
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductDeleted, product)
}

func (p *Producer) publishProduct(ctx context.Context, topic string, product *domain.Product) error {
	data := ProductEventData{
		ID:           product.ID,
		ShopID:       product.ShopID,
		Name:         product.Name,
		Price:        product.Price,
		CategoryRefs: product.CategoryRefs,
		Status:       product.Status,
	}

	event, err := pkgkafka.NewEvent(topic, product.ID, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}

// PublishVariantDefaultSet publishes a variant.default_set event.
func (p *Producer) PublishVariantDefaultSet(ctx context.Context, productID, variantID string) error {
	data := VariantDefaultSetData{
		ProductID: productID,
		VariantID: variantID,
	}

	event, err := pkgkafka.NewEvent(TopicVariantDefaultSet, variantID, AggregateTypeVariant, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create variant.default_set event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicVariantDefaultSet, event); err != nil {
		return fmt.Errorf("publish variant.default_set event: %w", err)
	}

	p.logger.DebugContext(ctx, "published variant.default_set event",
		slog.String("product_id", productID),
		slog.String("variant_id", variantID),
	)

	return nil
}

// PublishCouponCreated publishes a coupon.created event.
func (p *Producer) PublishCouponCreated(ctx context.Context, coupon *domain.Coupon) error {
	return p.publishCoupon(ctx, TopicCouponCreated, coupon)
}

// PublishCouponUpdated publishes a coupon.updated event.
func (p *Producer) PublishCouponUpdated(ctx context.Context, coupon *domain.Coupon) error {
	return p.publishCoupon(ctx, TopicCouponUpdated, coupon)
}

func (p *Producer) publishCoupon(ctx context.Context, topic string, coupon *domain.Coupon) error {
	data := CouponEventData{
		ID:       coupon.ID,
		ShopID:   coupon.ShopID,
		Code:     coupon.Code,
		Type:     coupon.Type,
		Value:    coupon.Value,
		IsActive: coupon.IsActive,
	}

	event, err := pkgkafka.NewEvent(topic, coupon.ID, AggregateTypeCoupon, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}

// PublishCouponApplied publishes a coupon.applied event.
func (p *Producer) PublishCouponApplied(ctx context.Context, coupon *domain.Coupon, usage *domain.CouponUsage) error {
	data := CouponAppliedData{
		CouponID:        usage.CouponID,
		UserID:          usage.UserID,
		OrderID:         usage.OrderID,
		Code:            coupon.Code,
		DiscountApplied: usage.DiscountApplied,
	}

	event, err := pkgkafka.NewEvent(TopicCouponApplied, coupon.ID, AggregateTypeCoupon, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create coupon.applied event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponApplied, event); err != nil {
		return fmt.Errorf("publish coupon.applied event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.applied event",
		slog.String("coupon_id", coupon.ID),
		slog.String("user_id", usage.UserID),
		slog.String("order_id", usage.OrderID),
	)

	return nil
}

// PublishCartItemAdded publishes a cart.item_added event.
func (p *Producer) PublishCartItemAdded(ctx context.Context, userID string, item *domain.CartItem) error {
	data := CartItemAddedData{
		UserID:    userID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
	}

	event, err := pkgkafka.NewEvent(TopicCartItemAdded, userID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.item_added event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartItemAdded, event); err != nil {
		return fmt.Errorf("publish cart.item_added event: %w", err)
	}

	return nil
}
