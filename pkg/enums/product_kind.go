package enums

import "fmt"

// ProductKind is the exclusive specialization of a catalog product. Every
// product is exactly one of these, never both and never neither.
type ProductKind string

const (
	ProductKindMedicine           ProductKind = "MEDICINE"
	ProductKindParapharmaceutical ProductKind = "PARAPHARMACEUTICAL"
)

var validProductKinds = []ProductKind{
	ProductKindMedicine,
	ProductKindParapharmaceutical,
}

// String implements fmt.Stringer.
func (k ProductKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known ProductKind.
func (k ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
