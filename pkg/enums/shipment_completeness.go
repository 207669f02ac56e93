package enums

import "fmt"

// ShipmentCompleteness records whether a dispatch covered every requested unit.
type ShipmentCompleteness string

const (
	ShipmentFull    ShipmentCompleteness = "FULL"
	ShipmentPartial ShipmentCompleteness = "PARTIAL"
)

var validShipmentCompleteness = []ShipmentCompleteness{
	ShipmentFull,
	ShipmentPartial,
}

// String implements fmt.Stringer.
func (c ShipmentCompleteness) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ShipmentCompleteness.
func (c ShipmentCompleteness) IsValid() bool {
	for _, candidate := range validShipmentCompleteness {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseShipmentCompleteness converts raw input into a ShipmentCompleteness.
func ParseShipmentCompleteness(value string) (ShipmentCompleteness, error) {
	for _, candidate := range validShipmentCompleteness {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment completeness %q", value)
}
