package billing

import (
	"time"

	"YoForex/internal/domain/models"
)

// EffectivePlan is the plan a user is entitled to at t. A paid plan whose
// subscription lapsed falls back to free.
func EffectivePlan(u *models.User, sub *models.Subscription, t time.Time) models.PlanType {
	if u == nil || u.Plan == "" || u.Plan == models.PlanFree {
		return models.PlanFree
	}
	if sub != nil && !sub.Active(t) {
		return models.PlanFree
	}
	return u.Plan
}
