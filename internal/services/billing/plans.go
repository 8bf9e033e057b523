package billing

import "YoForex/internal/domain/models"

var plans = []models.Plan{
	{
		ID:              models.PlanFree,
		Name:            "Free",
		Price:           0,
		Currency:        "USD",
		Interval:        "month",
		Features:        []string{"10 AI analyses per month", "Single AI model", "Basic market data"},
		MonthlyAnalyses: 10,
	},
	{
		ID:              models.PlanBasic,
		Name:            "Basic",
		Price:           19.99,
		Currency:        "USD",
		Interval:        "month",
		Features:        []string{"100 AI analyses per month", "Two AI models", "Analysis history", "Email support"},
		MonthlyAnalyses: 100,
	},
	{
		ID:              models.PlanPro,
		Name:            "Pro",
		Price:           49.99,
		Currency:        "USD",
		Interval:        "month",
		Features:        []string{"1000 AI analyses per month", "Multi-model consensus", "Manual chart analysis", "Priority support"},
		IsPopular:       true,
		MonthlyAnalyses: 1000,
	},
	{
		ID:       models.PlanEnterprise,
		Name:     "Enterprise",
		Price:    199.99,
		Currency: "USD",
		Interval: "month",
		Features: []string{"Unlimited AI analyses", "All AI models", "Dedicated account manager", "Custom integrations"},
	},
}

func Plans() []models.Plan { return append([]models.Plan(nil), plans...) }

func PlanByID(id models.PlanType) (models.Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}

// AnalysisLimit is the monthly allowance of a plan; 0 means unlimited. Unknown plans
// get the free allowance.
func AnalysisLimit(id models.PlanType) int {
	if p, ok := PlanByID(id); ok {
		return p.MonthlyAnalyses
	}
	p, _ := PlanByID(models.PlanFree)
	return p.MonthlyAnalyses
}
