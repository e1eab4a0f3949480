package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
)

const orderColumns = `id, code, business_id, customer_id, customer_name, items,
	address_text, address_lat, address_lng, payment_method,
	subtotal::text, delivery_fee::text, discount::text, total::text,
	coupon_code, notes, status, COALESCE(assigned_courier_id, ''), created_at, status_changed_at`

// itemRow is the JSONB shape of an order item.
type itemRow struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// OrderRepo represents order repository.
type OrderRepo struct{ db *pgxpool.Pool }

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(db *pgxpool.Pool) *OrderRepo { return &OrderRepo{db: db} }

// Insert - stores a new order.
func (r *OrderRepo) Insert(ctx context.Context, o *domain.Order) error {
	items := make([]itemRow, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemRow(it))
	}
	rawItems, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO orders (
            id, code, business_id, customer_id, customer_name, items,
            address_text, address_lat, address_lng, payment_method,
            subtotal, delivery_fee, discount, total,
            coupon_code, notes, status, assigned_courier_id, created_at, status_changed_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10,
            $11::numeric, $12::numeric, $13::numeric, $14::numeric,
            $15, $16, $17, NULLIF($18, ''), $19, $20
        )`,
		o.ID, o.Code, o.BusinessID, o.CustomerID, o.CustomerName, rawItems,
		o.Address.Text, o.Address.Lat, o.Address.Lng, string(o.PaymentMethod),
		o.Subtotal.String(), o.DeliveryFee.String(), o.Discount.String(), o.Total.String(),
		o.CouponCode, o.Notes, string(o.Status), o.AssignedCourierID, o.CreatedAt, o.StatusChangedAt,
	)
	if err != nil {
		switch {
		case IsDuplicate(err):
			return fmt.Errorf("%w: order %s already exists", apperr.ErrConflict, o.ID)
		case IsForeignKey(err):
			return fmt.Errorf("%w: unknown business %s", apperr.ErrNotFound, o.BusinessID)
		}
		return wrap("insert order", err)
	}
	return nil
}

// Get - returns order by its ID, or nil if it does not exist.
func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("get order %q", id), err)
	}
	return o, nil
}

// CompareAndSetStatus - updates status and courier in one statement guarded by the expected
// status and courier. Returns nil when nothing matched.
func (r *OrderRepo) CompareAndSetStatus(ctx context.Context, cas domain.StatusCAS) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
        UPDATE orders
        SET status              = $4,
            assigned_courier_id = NULLIF($5, ''),
            status_changed_at   = $6
        WHERE id = $1
          AND status = $2
          AND assigned_courier_id IS NOT DISTINCT FROM NULLIF($3, '')
        RETURNING `+orderColumns,
		cas.OrderID, string(cas.ExpectedStatus), cas.ExpectedCourierID,
		string(cas.NewStatus), cas.NewCourierID, cas.ChangedAt,
	)
	o, err := scanOrder(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("update order %q status", cas.OrderID), err)
	}
	return o, nil
}

// List returns orders matching the filter ordered by creation time.
func (r *OrderRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.BusinessID != "" {
		add("business_id = $%d", f.BusinessID)
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.CourierID != "" {
		add("assigned_courier_id = $%d", f.CourierID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		add("status = ANY($%d)", statuses)
	}

	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list orders", err)
	}
	defer rows.Close()

	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("scan order", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list orders", err)
	}
	return out, nil
}

// CountClaimable returns claimable order counts keyed by business id.
func (r *OrderRepo) CountClaimable(ctx context.Context, businessIDs []string) (map[string]int, error) {
	out := make(map[string]int)
	if len(businessIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
        SELECT business_id, COUNT(*)
        FROM orders
        WHERE business_id = ANY($1)
          AND status = $2
          AND assigned_courier_id IS NULL
        GROUP BY business_id`,
		businessIDs, string(domain.StatusCourierPending),
	)
	if err != nil {
		return nil, wrap("count claimable orders", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, wrap("scan claimable count", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("count claimable orders", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                 domain.Order
		rawItems                          []byte
		payment, status                   string
		subtotal, fee, discount, totalStr string
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.BusinessID, &o.CustomerID, &o.CustomerName, &rawItems,
		&o.Address.Text, &o.Address.Lat, &o.Address.Lng, &payment,
		&subtotal, &fee, &discount, &totalStr,
		&o.CouponCode, &o.Notes, &status, &o.AssignedCourierID, &o.CreatedAt, &o.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(payment)
	o.Status = domain.OrderStatus(status)

	var items []itemRow
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return nil, fmt.Errorf("decode items of order %q: %w", o.ID, err)
	}
	o.Items = make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem(it))
	}

	for _, m := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.Subtotal, subtotal}, {&o.DeliveryFee, fee}, {&o.Discount, discount}, {&o.Total, totalStr},
	} {
		d, err := decimal.NewFromString(m.src)
		if err != nil {
			return nil, fmt.Errorf("decode amount of order %q: %w", o.ID, err)
		}
		*m.dst = d
	}
	return &o, nil
}
