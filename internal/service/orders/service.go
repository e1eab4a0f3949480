package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/readretry"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	codeAttempts     = 3
)

// NewItem is a requested order line.
type NewItem struct {
	ProductID string          `validate:"required,max=64"`
	Title     string          `validate:"required,max=200"`
	UnitPrice decimal.Decimal
	Quantity  int             `validate:"gte=1,lte=1000"`
}

// NewOrder is a request to place an order.
type NewOrder struct {
	BusinessID    string          `validate:"required,max=64"`
	CustomerID    string          `validate:"required,max=64"`
	CustomerName  string          `validate:"required,max=200"`
	Items         []NewItem       `validate:"required,min=1,max=100,dive"`
	AddressText   string          `validate:"required,max=500"`
	Lat           float64         `validate:"latitude"`
	Lng           float64         `validate:"longitude"`
	PaymentMethod string          `validate:"required,oneof=cash card online"`
	CouponCode    string          `validate:"omitempty,max=64"`
	Discount      decimal.Decimal
	Notes         string          `validate:"max=1000"`

	// RequestID makes creation idempotent per customer and business.
	RequestID string `validate:"omitempty,max=128"`
}

// Service creates orders and serves reads scoped to the caller.
type Service struct {
	orders           OrderRepository
	businesses       BusinessDirectory
	publisher        Publisher
	retrier          *readretry.Retrier
	deliveryFee      decimal.Decimal
	operationTimeout time.Duration
	validate         *validator.Validate
	logger           logx.Logger
	now              func() time.Time
	newID            func() string
}

// NewService creates an orders Service charging deliveryFee on every order.
func NewService(
	orders OrderRepository,
	businesses BusinessDirectory,
	pub Publisher,
	retrier *readretry.Retrier,
	deliveryFee decimal.Decimal,
	timeout time.Duration,
	logger logx.Logger,
) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		orders:           orders,
		businesses:       businesses,
		publisher:        pub,
		retrier:          retrier,
		deliveryFee:      deliveryFee,
		operationTimeout: timeout,
		validate:         validator.New(),
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            func() string { return uuid.NewString() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Create places a new order in status created. Customers may only order for themselves.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in NewOrder) (*domain.Order, error) {
	switch {
	case actor.Role == domain.RoleAdmin:
	case actor.Role == domain.RoleCustomer && actor.ID != "" && actor.ID == strings.TrimSpace(in.CustomerID):
	default:
		return nil, fmt.Errorf("%w: %s cannot place this order", apperr.ErrForbidden, actor.Role)
	}

	o, err := s.build(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := readretry.Do(ctx, s.retrier, "businesses.get",
		func(ctx context.Context) (*domain.Business, error) {
			return s.businesses.Get(ctx, o.BusinessID)
		})
	if err != nil {
		return nil, fmt.Errorf("resolve business %s: %w", o.BusinessID, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: business %s", apperr.ErrNotFound, o.BusinessID)
	}
	if !b.Dispatchable() {
		return nil, fmt.Errorf("%w: business %s is not accepting orders", apperr.ErrConflict, o.BusinessID)
	}

	if in.RequestID != "" {
		o.ID = requestOrderID(o.CustomerID, o.BusinessID, in.RequestID)
		o.Code = codeFor(o.ID)
		if err := s.orders.Insert(ctx, o); err != nil {
			if !errors.Is(err, apperr.ErrConflict) {
				return nil, fmt.Errorf("insert order: %w", err)
			}
			existing, gerr := s.orders.Get(ctx, o.ID)
			if gerr != nil || existing == nil {
				return nil, fmt.Errorf("insert order: %w", err)
			}
			if existing.CustomerID != o.CustomerID || existing.BusinessID != o.BusinessID {
				return nil, fmt.Errorf("%w: request id already used", apperr.ErrConflict)
			}
			return existing, nil
		}
	} else {
		for attempt := 1; ; attempt++ {
			o.ID = s.newID()
			o.Code = codeFor(o.ID)
			err = s.orders.Insert(ctx, o)
			if err == nil {
				break
			}
			if !errors.Is(err, apperr.ErrConflict) || attempt == codeAttempts {
				return nil, fmt.Errorf("insert order: %w", err)
			}
		}
	}

	s.logger.Info("order created",
		logx.String("event", "order_created"),
		logx.OrderID(o.ID),
		logx.String("code", o.Code),
		logx.BusinessID(o.BusinessID),
		logx.String("total", o.Total.StringFixed(2)),
	)
	s.publisher.OrderCreated(ctx, *o)
	return o, nil
}

// requestOrderID scopes a client request id to the ordering customer and business.
func requestOrderID(customerID, businessID, requestID string) string {
	name := customerID + "\x00" + businessID + "\x00" + requestID
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (s *Service) build(in NewOrder) (*domain.Order, error) {
	in.BusinessID = strings.TrimSpace(in.BusinessID)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.AddressText = strings.TrimSpace(in.AddressText)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))

	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalid, describe(err))
	}
	if !(geo.Point{Lat: in.Lat, Lng: in.Lng}).Valid() {
		return nil, fmt.Errorf("%w: address coordinates out of range", apperr.ErrInvalid)
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for _, it := range in.Items {
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price of %s is negative", apperr.ErrInvalid, it.ProductID)
		}
		item := domain.OrderItem{
			ProductID: strings.TrimSpace(it.ProductID),
			Title:     strings.TrimSpace(it.Title),
			UnitPrice: it.UnitPrice.Round(2),
			Quantity:  it.Quantity,
		}
		subtotal = subtotal.Add(item.Subtotal())
		items = append(items, item)
	}

	discount := in.Discount.Round(2)
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return nil, fmt.Errorf("%w: discount must be within [0, subtotal]", apperr.ErrInvalid)
	}

	now := s.now()
	fee := s.deliveryFee.Round(2)
	return &domain.Order{
		BusinessID:      in.BusinessID,
		CustomerID:      in.CustomerID,
		CustomerName:    in.CustomerName,
		Items:           items,
		Address:         domain.DeliveryAddress{Text: in.AddressText, Lat: in.Lat, Lng: in.Lng},
		PaymentMethod:   domain.PaymentMethod(in.PaymentMethod),
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		Discount:        discount,
		Total:           subtotal.Add(fee).Sub(discount),
		CouponCode:      strings.TrimSpace(in.CouponCode),
		Notes:           strings.TrimSpace(in.Notes),
		Status:          domain.StatusCreated,
		CreatedAt:       now,
		StatusChangedAt: now,
	}, nil
}

// Get returns an order the actor is entitled to see.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", apperr.ErrInvalid)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	o, err := readretry.Do(ctx, s.retrier, "orders.get",
		func(ctx context.Context) (*domain.Order, error) {
			return s.orders.Get(ctx, id)
		})
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	if !canView(actor, o) {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrForbidden, id)
	}
	return o, nil
}

// List returns orders visible to the actor, optionally narrowed by status.
func (s *Service) List(ctx context.Context, actor domain.Actor, statuses []domain.OrderStatus, limit int) ([]domain.Order, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalid, st)
		}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	f := domain.OrderFilter{Statuses: statuses, Limit: limit}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleCustomer:
		f.CustomerID = actor.ID
	case domain.RoleBusiness:
		f.BusinessID = actor.ID
	case domain.RoleCourier:
		f.CourierID = actor.ID
	default:
		return nil, fmt.Errorf("%w: unknown role", apperr.ErrForbidden)
	}
	if actor.Role != domain.RoleAdmin && actor.ID == "" {
		return nil, fmt.Errorf("%w: actor id is required", apperr.ErrForbidden)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := readretry.Do(ctx, s.retrier, "orders.list",
		func(ctx context.Context) ([]domain.Order, error) {
			return s.orders.List(ctx, f)
		})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

func canView(a domain.Actor, o *domain.Order) bool {
	switch a.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleCustomer:
		return a.ID != "" && o.CustomerID == a.ID
	case domain.RoleBusiness:
		return a.ID != "" && o.BusinessID == a.ID
	case domain.RoleCourier:
		return a.ID != "" && (o.AssignedCourierID == a.ID || o.Claimable())
	default:
		return false
	}
}

func codeFor(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "ORD-" + strings.ToUpper(compact)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
	}
	return strings.Join(parts, "; ")
}
