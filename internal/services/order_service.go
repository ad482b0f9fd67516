package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
)

// OrderItemInput describes one line of an order.
// Per-line bounds. They keep a line total far below int64 range; the running sum is still checked.
const (
	MaxItemQuantity   = 10_000
	MaxUnitPriceCents = 100_000_000
)

type OrderItemInput struct {
	Name           string
	Quantity       int
	UnitPriceCents int64
	Notes          string
}

// CreateOrderInput captures the fields accepted when placing an order.
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Type            models.OrderType
	DeliveryAddress string
	Notes           string
	Metadata        map[string]any
	Items           []OrderItemInput
}

// UpdateOrderInput enumerates mutable order attributes. A non-nil Items slice replaces every line.
type UpdateOrderInput struct {
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	Type            *models.OrderType
	DeliveryAddress *string
	Notes           *string
	Metadata        map[string]any
	Items           []OrderItemInput
}

// OrderFilters narrows order listings.
type OrderFilters struct {
	Status models.OrderStatus
	Type   models.OrderType
	Query  string
}

// ListOrdersOptions controls pagination for order listings.
type ListOrdersOptions struct {
	Page     int
	PageSize int
	Filters  OrderFilters
}

// OrderStats holds per-status order counts for an account.
type OrderStats struct {
	Total    int64                        `json:"total"`
	ByStatus map[models.OrderStatus]int64 `json:"by_status"`
}

// OrderService manages orders. Every call is scoped to the caller's account.
type OrderService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, audit *AuditService) (*OrderService, error) {
	if db == nil {
		return nil, errors.New("order service: db is required")
	}
	return &OrderService{db: db, audit: audit}, nil
}

// List returns the account's orders, newest first.
func (s *OrderService) List(ctx context.Context, accountID string, opts ListOrdersOptions) ([]models.Order, int64, error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Order{}).Where("account_id = ?", accountID)

	if status := opts.Filters.Status; status != "" {
		if !status.Valid() {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("unknown order status %q", status))
		}
		query = query.Where("status = ?", status)
	}
	if orderType := opts.Filters.Type; orderType != "" {
		if !orderType.Valid() {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("unknown order type %q", orderType))
		}
		query = query.Where("type = ?", orderType)
	}
	if term := strings.ToLower(strings.TrimSpace(opts.Filters.Query)); term != "" {
		like := "%" + term + "%"
		query = query.Where(
			"LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(number) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("order service: count orders: %w", err)
	}

	var orders []models.Order
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("created_at DESC").
		Order("number DESC").
		Scopes(paginate(opts.Page, opts.PageSize)).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("order service: list orders: %w", err)
	}

	return orders, total, nil
}

// Get loads a single order belonging to the account.
func (s *OrderService) Get(ctx context.Context, accountID, id string) (*models.Order, error) {
	return s.load(s.db.WithContext(ensureContext(ctx)), accountID, id)
}

// Create places a new pending order. The total is computed from the items.
func (s *OrderService) Create(ctx context.Context, userID, accountID string, input CreateOrderInput) (*models.Order, error) {
	ctx = ensureContext(ctx)

	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, apperrors.NewBadRequest("customer_name is required")
	}
	orderType := input.Type
	if orderType == "" {
		orderType = models.OrderTypePickup
	}
	if !orderType.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown order type %q", orderType))
	}
	address := strings.TrimSpace(input.DeliveryAddress)
	if orderType == models.OrderTypeDelivery && address == "" {
		return nil, apperrors.NewBadRequest("delivery_address is required for delivery orders")
	}

	items, total, err := buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}
	metadata, err := encodeOrderMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		AccountID:       accountID,
		Number:          ulid.Make().String(),
		CustomerName:    customer,
		CustomerEmail:   normaliseEmail(input.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		Type:            orderType,
		Status:          models.OrderStatusPending,
		DeliveryAddress: address,
		Notes:           strings.TrimSpace(input.Notes),
		TotalCents:      total,
		Metadata:        metadata,
		Items:           items,
	}

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("order service: create order: %w", err)
	}

	monitoring.RecordOrderEvent("created")
	s.recordOrderAudit(ctx, userID, order, AuditActionOrderCreate, map[string]any{
		"number":      order.Number,
		"total_cents": order.TotalCents,
	})

	return s.Get(ctx, accountID, order.ID)
}

// Update modifies an order that has not reached a terminal status.
func (s *OrderService) Update(ctx context.Context, accountID, id string, input UpdateOrderInput) (*models.Order, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.load(tx, accountID, id)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apperrors.ErrConflict.WithMessage(fmt.Sprintf("order is %s and can no longer be edited", order.Status))
		}

		updates := map[string]any{}
		if input.CustomerName != nil {
			name := strings.TrimSpace(*input.CustomerName)
			if name == "" {
				return apperrors.NewBadRequest("customer_name cannot be empty")
			}
			updates["customer_name"] = name
		}
		if input.CustomerEmail != nil {
			updates["customer_email"] = normaliseEmail(*input.CustomerEmail)
		}
		if input.CustomerPhone != nil {
			updates["customer_phone"] = strings.TrimSpace(*input.CustomerPhone)
		}
		if input.Notes != nil {
			updates["notes"] = strings.TrimSpace(*input.Notes)
		}

		orderType := order.Type
		if input.Type != nil {
			if !input.Type.Valid() {
				return apperrors.NewBadRequest(fmt.Sprintf("unknown order type %q", *input.Type))
			}
			orderType = *input.Type
			updates["type"] = orderType
		}
		address := order.DeliveryAddress
		if input.DeliveryAddress != nil {
			address = strings.TrimSpace(*input.DeliveryAddress)
			updates["delivery_address"] = address
		}
		if orderType == models.OrderTypeDelivery && address == "" {
			return apperrors.NewBadRequest("delivery_address is required for delivery orders")
		}

		if input.Metadata != nil {
			metadata, err := encodeOrderMetadata(input.Metadata)
			if err != nil {
				return err
			}
			updates["metadata"] = metadata
		}

		if input.Items != nil {
			items, total, err := buildOrderItems(input.Items)
			if err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return fmt.Errorf("delete items: %w", err)
			}
			for i := range items {
				items[i].OrderID = order.ID
			}
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("create items: %w", err)
			}
			updates["total_cents"] = total
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(order).Omit("Items").Updates(updates).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("order service: update order: %w", err)
	}

	monitoring.RecordOrderEvent("updated")
	return s.Get(ctx, accountID, id)
}

// UpdateStatus moves the order along the kitchen workflow.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, accountID, id string, next models.OrderStatus) (*models.Order, error) {
	ctx = ensureContext(ctx)

	if !next.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown order status %q", next))
	}

	var previous models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.load(tx, accountID, id)
		if err != nil {
			return err
		}
		previous = order.Status
		if !order.Status.CanTransitionTo(next) {
			return ErrInvalidStatusTransition.WithMessage(
				fmt.Sprintf("Cannot move order from %s to %s", order.Status, next),
			)
		}
		// Guarding on the old status rejects a concurrent transition that won the race.
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", next)
		if result.Error != nil {
			return fmt.Errorf("update status: %w", result.Error)
		}
		if result.RowsAffected != 1 {
			return ErrInvalidStatusTransition
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("order service: update status: %w", err)
	}

	monitoring.RecordOrderEvent("status_" + string(next))
	order, err := s.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	s.recordOrderAudit(ctx, userID, order, AuditActionOrderStatus, map[string]any{
		"from": previous,
		"to":   next,
	})
	return order, nil
}

// Delete removes the order and its items.
func (s *OrderService) Delete(ctx context.Context, userID, accountID, id string) error {
	ctx = ensureContext(ctx)

	var deleted *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.load(tx, accountID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := tx.Delete(&models.Order{}, "id = ?", order.ID).Error; err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		deleted = order
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("order service: %w", err)
	}

	monitoring.RecordOrderEvent("deleted")
	s.recordOrderAudit(ctx, userID, deleted, AuditActionOrderDelete, map[string]any{"number": deleted.Number})
	return nil
}

// Stats counts the account's orders per status. Every known status is present in the result.
func (s *OrderService) Stats(ctx context.Context, accountID string) (*OrderStats, error) {
	ctx = ensureContext(ctx)

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("account_id = ?", accountID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("order service: stats: %w", err)
	}

	stats := &OrderStats{ByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses))}
	for _, status := range models.OrderStatuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}

func (s *OrderService) load(db *gorm.DB, accountID, id string) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND account_id = ?", strings.TrimSpace(id), accountID).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order service: get order: %w", err)
	}
	return &order, nil
}

func (s *OrderService) recordOrderAudit(ctx context.Context, userID string, order *models.Order, action string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["order_id"] = order.ID
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(userID),
		AccountID: stringPtr(order.AccountID),
		Action:    action,
		Result:    auditResultSuccess,
		Metadata:  metadata,
	})
}

func buildOrderItems(inputs []OrderItemInput) ([]models.OrderItem, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, apperrors.NewBadRequest("an order needs at least one item")
	}

	items := make([]models.OrderItem, 0, len(inputs))
	var total int64
	for i, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("items[%d].name is required", i))
		}
		if input.Quantity <= 0 {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if input.Quantity > MaxItemQuantity {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("items[%d].quantity cannot exceed %d", i, MaxItemQuantity))
		}
		if input.UnitPriceCents < 0 {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("items[%d].unit_price_cents cannot be negative", i))
		}
		if input.UnitPriceCents > MaxUnitPriceCents {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("items[%d].unit_price_cents cannot exceed %d", i, MaxUnitPriceCents))
		}
		item := models.OrderItem{
			Name:           name,
			Quantity:       input.Quantity,
			UnitPriceCents: input.UnitPriceCents,
			Notes:          strings.TrimSpace(input.Notes),
		}
		line := item.LineTotal()
		if line > math.MaxInt64-total {
			return nil, 0, apperrors.NewBadRequest("order total is too large")
		}
		total += line
		items = append(items, item)
	}
	return items, total, nil
}

func encodeOrderMetadata(metadata map[string]any) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.NewBadRequest("metadata must be a JSON object")
	}
	return datatypes.JSON(encoded), nil
}
