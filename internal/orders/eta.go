package orders

// estimateDeliveryDays converts a shortfall ratio into a delivery estimate.
// A fully stocked order ships next day; the estimate grows linearly with the
// missing share of the order up to maxDays.
func estimateDeliveryDays(missing, total, maxDays int) int {
	if maxDays < 1 {
		maxDays = 1
	}
	if total <= 0 || missing <= 0 {
		return 1
	}
	if missing > total {
		missing = total
	}
	scaled := missing * (maxDays - 1)
	days := 1 + (scaled+total-1)/total
	if days > maxDays {
		days = maxDays
	}
	return days
}
