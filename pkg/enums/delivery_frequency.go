package enums

import "fmt"

// DeliveryFrequency is the cadence of deliveries agreed in a contract.
type DeliveryFrequency string

const (
	DeliveryWeekly   DeliveryFrequency = "WEEKLY"
	DeliveryBiweekly DeliveryFrequency = "BIWEEKLY"
	DeliveryMonthly  DeliveryFrequency = "MONTHLY"
)

var validDeliveryFrequencies = []DeliveryFrequency{
	DeliveryWeekly,
	DeliveryBiweekly,
	DeliveryMonthly,
}

// String implements fmt.Stringer.
func (f DeliveryFrequency) String() string {
	return string(f)
}

// IsValid reports whether the value is a known DeliveryFrequency.
func (f DeliveryFrequency) IsValid() bool {
	for _, candidate := range validDeliveryFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseDeliveryFrequency converts raw input into a DeliveryFrequency.
func ParseDeliveryFrequency(value string) (DeliveryFrequency, error) {
	for _, candidate := range validDeliveryFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery frequency %q", value)
}
