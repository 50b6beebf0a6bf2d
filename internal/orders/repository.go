package orders

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	// OrderCounterName keys the counter row that numbers orders.
	OrderCounterName = "orders"
	// FirstOrderSeed is the counter value before the first order; the first
	// order is therefore "1001".
	FirstOrderSeed int64 = 1000
)

var nonDigits = regexp.MustCompile(`\D`)

// Repository persists orders and hands out order numbers.
type Repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// NextOrderNumber increments the counter row and returns its new value. It must
// run inside the commit transaction: the row lock taken by the UPDATE is held
// until commit, so concurrent checkouts receive distinct consecutive numbers and
// a rolled back checkout gives its number back.
func (r *Repository) NextOrderNumber(ctx context.Context) (string, error) {
	db := r.DB(ctx)
	for attempt := 0; attempt < 2; attempt++ {
		res := db.Model(&models.OrderCounter{}).
			Where("name = ?", OrderCounterName).
			Update("last_value", gorm.Expr("last_value + 1"))
		if res.Error != nil {
			return "", fmt.Errorf("increment order counter: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			var counter models.OrderCounter
			if err := db.Where("name = ?", OrderCounterName).First(&counter).Error; err != nil {
				return "", fmt.Errorf("read order counter: %w", err)
			}
			return strconv.FormatInt(counter.LastValue, 10), nil
		}
		if err := r.seedCounter(ctx); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("order counter %q unavailable", OrderCounterName)
}

// seedCounter creates the counter row from the most recent order number, so a
// database that predates the counter keeps numbering where it left off.
func (r *Repository) seedCounter(ctx context.Context) error {
	db := r.DB(ctx)
	seed := FirstOrderSeed

	var last models.Order
	err := db.Select("order_number").Order("created_at DESC").Order("id DESC").First(&last).Error
	switch {
	case err == nil:
		if parsed, ok := ParseOrderNumber(last.OrderNumber); ok && parsed > seed {
			seed = parsed
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("read last order number: %w", err)
	}

	counter := models.OrderCounter{Name: OrderCounterName, LastValue: seed}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return fmt.Errorf("seed order counter: %w", err)
	}
	return nil
}

// ParseOrderNumber strips non-digits ("#1042" -> 1042).
func ParseOrderNumber(raw string) (int64, bool) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CreateOrder inserts the order header without touching associations.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrderItems inserts the item snapshots of an order.
func (r *Repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&items).Error
}

// FindByNumber loads an order with items and influencer.
func (r *Repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return repo.First[models.Order](r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Influencer").
		Where("order_number = ?", strings.TrimSpace(orderNumber)))
}

// FindByID loads an order with items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return repo.First[models.Order](r.DB(ctx).Preload("Items").Where("id = ?", id))
}

// List returns a page of orders, newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	page, err := pagination.Scope(params)
	if err != nil {
		return nil, err
	}

	var rows []models.Order
	err = applyFilters(r.DB(ctx).Model(&models.Order{}), filters).
		Scopes(page).
		Preload("Items").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, params, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, NewOrderSummary(row))
	}
	return list, nil
}

func applyFilters(query *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.OrderStatus != nil {
		query = query.Where("order_status = ?", *filters.OrderStatus)
	}
	if filters.InfluencerID != nil {
		query = query.Where("influencer_id = ?", *filters.InfluencerID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", filters.DateFrom.UTC())
	}
	if filters.DateTo != nil {
		query = query.Where("created_at < ?", filters.DateTo.UTC())
	}
	if q := strings.ToLower(strings.TrimSpace(filters.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("order_number = ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?", q, like, like)
	}
	return query
}

// UpdateOrder applies column updates to a single order.
func (r *Repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type totalsRow struct {
	OrderCount       int64
	Revenue          decimal.Decimal
	TotalCost        decimal.Decimal
	PlatformFees     decimal.Decimal
	Commissions      decimal.Decimal
	NetProfit        decimal.Decimal
	AverageNetMargin decimal.Decimal
}

type influencerRow struct {
	InfluencerID   uuid.UUID
	InfluencerName string
	CouponCode     string
	OrderCount     int64
	Revenue        decimal.Decimal
	Commission     decimal.Decimal
}

// Summary aggregates the financial snapshot of orders created in [from, to).
func (r *Repository) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	from, to = from.UTC(), to.UTC()
	window := func() *gorm.DB {
		return r.DB(ctx).Model(&models.Order{}).
			Where("orders.created_at >= ? AND orders.created_at < ?", from, to)
	}

	var totals totalsRow
	err := window().Select(`COUNT(*) AS order_count,
		COALESCE(SUM(total_amount), 0) AS revenue,
		COALESCE(SUM(total_cost), 0) AS total_cost,
		COALESCE(SUM(platform_fee), 0) AS platform_fees,
		COALESCE(SUM(commission_value), 0) AS commissions,
		COALESCE(SUM(net_profit), 0) AS net_profit,
		COALESCE(AVG(net_margin_percent), 0) AS average_net_margin`).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}

	var rows []influencerRow
	err = window().
		Joins("JOIN influencers ON influencers.id = orders.influencer_id").
		Select(`orders.influencer_id AS influencer_id,
			influencers.name AS influencer_name,
			influencers.coupon_code AS coupon_code,
			COUNT(*) AS order_count,
			COALESCE(SUM(orders.total_amount), 0) AS revenue,
			COALESCE(SUM(orders.commission_value), 0) AS commission`).
		Group("orders.influencer_id, influencers.name, influencers.coupon_code").
		Order("commission DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate commissions: %w", err)
	}

	summary := &Summary{
		From:             from,
		To:               to,
		OrderCount:       totals.OrderCount,
		Revenue:          totals.Revenue.Round(2),
		TotalCost:        totals.TotalCost.Round(2),
		PlatformFees:     totals.PlatformFees.Round(2),
		Commissions:      totals.Commissions.Round(2),
		NetProfit:        totals.NetProfit.Round(2),
		AverageNetMargin: totals.AverageNetMargin.Round(2),
		Influencers:      make([]InfluencerCommission, 0, len(rows)),
	}
	for _, row := range rows {
		summary.Influencers = append(summary.Influencers, InfluencerCommission{
			InfluencerID: row.InfluencerID,
			Name:         row.InfluencerName,
			CouponCode:   row.CouponCode,
			OrderCount:   row.OrderCount,
			Revenue:      row.Revenue.Round(2),
			Commission:   row.Commission.Round(2),
		})
	}
	return summary, nil
}
