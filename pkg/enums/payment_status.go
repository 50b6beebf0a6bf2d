package enums

// PaymentStatus is set by back office staff once the customer's transfer or
// cash payment has been checked. Nothing here talks to a processor.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusApproved, PaymentStatusRefunded}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool {
	_, err := ParsePaymentStatus(string(p))
	return err == nil
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return parse("payment status", raw, paymentStatuses)
}
