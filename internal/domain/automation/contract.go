package automation

import "time"

// Delivery is one good a contract requires at a destination
type Delivery struct {
	TradeSymbol       string
	DestinationSymbol string
	UnitsRequired     int
	UnitsFulfilled    int
}

// Remaining returns the units still owed
func (d Delivery) Remaining() int {
	remaining := d.UnitsRequired - d.UnitsFulfilled
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Contract is the gateway's view of a faction contract
type Contract struct {
	ID                string
	FactionSymbol     string
	Type              string
	Accepted          bool
	Fulfilled         bool
	Deadline          time.Time
	DeadlineToAccept  time.Time
	PaymentOnAccepted int64
	PaymentOnFulfill  int64
	Deliveries        []Delivery
}

// IsActive reports an accepted contract that still needs work
func (c *Contract) IsActive() bool {
	return c.Accepted && !c.Fulfilled
}

// IsExpired reports whether the delivery deadline has passed
func (c *Contract) IsExpired(now time.Time) bool {
	return !c.Deadline.IsZero() && now.After(c.Deadline)
}

// DeliveriesComplete reports whether every delivery has been met
func (c *Contract) DeliveriesComplete() bool {
	for _, d := range c.Deliveries {
		if d.Remaining() > 0 {
			return false
		}
	}
	return true
}

// TotalPayment is the credits earned across acceptance and fulfilment
func (c *Contract) TotalPayment() int64 {
	return c.PaymentOnAccepted + c.PaymentOnFulfill
}

// ProgressPercent is fulfilled units over required units across deliveries
func (c *Contract) ProgressPercent() int {
	required, fulfilled := 0, 0
	for _, d := range c.Deliveries {
		required += d.UnitsRequired
		fulfilled += min(d.UnitsFulfilled, d.UnitsRequired)
	}
	if required == 0 {
		return 100
	}
	return fulfilled * 100 / required
}
