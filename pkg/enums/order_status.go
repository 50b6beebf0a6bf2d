package enums

// OrderStatus tracks fulfillment of a committed order.
type OrderStatus string

const (
	OrderStatusAwaiting  OrderStatus = "awaiting"
	OrderStatusPicking   OrderStatus = "picking"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusReturned  OrderStatus = "returned"
)

var orderStatuses = []OrderStatus{
	OrderStatusAwaiting,
	OrderStatusPicking,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusReturned,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parse("order status", raw, orderStatuses)
}
