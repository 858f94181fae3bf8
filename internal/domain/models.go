package domain

// Product is one stocked SKU. Quantity is kept non-negative by the
// inventory service, not by the schema.
type Product struct {
	SKU      string `db:"sku" json:"sku"`
	Name     string `db:"name" json:"name"`
	Location string `db:"location" json:"location"`
	Quantity int    `db:"quantity" json:"quantity"`
	Image    string `db:"image" json:"image"`
}

// Log actions.
const (
	ActionInbound  = "inbound"
	ActionOutbound = "outbound"
	ActionDelete   = "delete"
)

// AnonymousActor is recorded when a transaction names no user.
const AnonymousActor = "anonymous"

// LogEntry is an append-only audit row. Quantity is the applied delta and
// Balance the resulting stock.
type LogEntry struct {
	ID        int64  `db:"id" json:"id"`
	Timestamp string `db:"timestamp" json:"timestamp"`
	User      string `db:"user" json:"user"`
	Action    string `db:"action" json:"action"`
	SKU       string `db:"sku" json:"sku"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Balance   int    `db:"balance" json:"balance"`
}

// StockLevel buckets a quantity for display: IN_STOCK | LOW_STOCK | OUT_OF_STOCK.
func StockLevel(qty int) string {
	switch {
	case qty >= 5:
		return "IN_STOCK"
	case qty > 0:
		return "LOW_STOCK"
	}
	return "OUT_OF_STOCK"
}
