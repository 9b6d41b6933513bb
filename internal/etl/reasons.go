package etl

import "github.com/tripdash/tripdash-backend/pkg/db/models"

// ReasonNotSpecified is the unified cancellation reason used when no
// indicator is set, or when the first set indicator carries no reason.
const ReasonNotSpecified = "Reason Not Specified"

// CancellationRule pairs a "cancelled by X" indicator with the reason column
// that explains it.
type CancellationRule struct {
	Name      string
	Indicator func(models.RawTrip) *string
	Reason    func(models.RawTrip) *string
}

// CancellationRules lists the indicator/reason pairs in precedence order.
var CancellationRules = []CancellationRule{
	{
		Name:      "customer",
		Indicator: func(r models.RawTrip) *string { return r.CancelledByCustomer },
		Reason:    func(r models.RawTrip) *string { return r.CustomerCancelReason },
	},
	{
		Name:      "driver",
		Indicator: func(r models.RawTrip) *string { return r.CancelledByDriver },
		Reason:    func(r models.RawTrip) *string { return r.DriverCancelReason },
	},
	{
		Name:      "incomplete",
		Indicator: func(r models.RawTrip) *string { return r.IncompleteRides },
		Reason:    func(r models.RawTrip) *string { return r.IncompleteReason },
	},
}

// UnifiedReason walks rules in order and returns the reason paired with the
// first non-null indicator. It never returns an empty string.
func UnifiedReason(rules []CancellationRule, row models.RawTrip) string {
	for _, rule := range rules {
		if normalizeText(rule.Indicator(row)) == nil {
			continue
		}
		if reason := normalizeText(rule.Reason(row)); reason != nil {
			return *reason
		}
		return ReasonNotSpecified
	}
	return ReasonNotSpecified
}
