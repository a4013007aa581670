package domain

// PriceFailure reports a requested unit price that does not match the current catalog price.
type PriceFailure struct {
	ItemKey
	Expected Money
	Actual   Money
}

type QuantityReason string

const (
	QuantityBelowMinimum QuantityReason = "below_minimum"
	QuantityUnavailable  QuantityReason = "unavailable"
)

// QuantityFailure reports a requested quantity that was rejected.
// For QuantityBelowMinimum Expected is the minimum order quantity; for
// QuantityUnavailable it is the available stock.
type QuantityFailure struct {
	ItemKey
	Reason   QuantityReason
	Expected int
	Actual   int
}
