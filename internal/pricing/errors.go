package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockShortage describes a line that cannot be served.
type StockShortage struct {
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

// MarginShortfall carries the figures behind a margin rejection.
type MarginShortfall struct {
	NetMarginPercent     string `json:"net_margin_percent"`
	MinimumMarginPercent string `json:"minimum_margin_percent"`
	ProjectedProfit      string `json:"projected_profit"`
}

// InsufficientStockError builds the error used both at pricing and at commit.
func InsufficientStockError(s StockShortage) *pkgerrors.Error {
	msg := fmt.Sprintf("insufficient stock for %s (size %s): requested %d, available %d", s.ProductName, s.Size, s.Requested, s.Available)
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(s)
}

// MarginTooLowError builds the operator-facing rejection for the margin gate.
func MarginTooLowError(netMargin, minimum, profit decimal.Decimal) *pkgerrors.Error {
	details := MarginShortfall{
		NetMarginPercent:     Display(netMargin),
		MinimumMarginPercent: Display(minimum),
		ProjectedProfit:      Display(profit),
	}
	msg := fmt.Sprintf(
		"order blocked: net margin (%s%%) below required minimum (%s%%). projected profit: R$ %s",
		details.NetMarginPercent, details.MinimumMarginPercent, details.ProjectedProfit,
	)
	return pkgerrors.New(pkgerrors.CodeMarginTooLow, msg).WithDetails(details)
}
