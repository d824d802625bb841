package models

// PlanConfig описывает платный план в каталоге: название, цену и описание для провайдера.
type PlanConfig struct {
	Plan        Plan
	Name        string
	PriceCents  int
	Description string
}

// paidPlans статическая таблица цен. Цена копируется в запись при её создании.
var paidPlans = map[Plan]PlanConfig{
	PlanPremium: {
		Plan:        PlanPremium,
		Name:        "Festiva Premium",
		PriceCents:  2990,
		Description: "Acesso completo ao Festiva com IA e templates premium",
	},
	PlanFamily: {
		Plan:        PlanFamily,
		Name:        "Festiva Família",
		PriceCents:  4990,
		Description: "Plano família com até 5 membros",
	},
}

// LookupPaidPlan возвращает конфигурацию платного плана или ErrInvalidPlan.
func LookupPaidPlan(plan string) (PlanConfig, error) {
	cfg, ok := paidPlans[Plan(plan)]
	if !ok {
		return PlanConfig{}, ErrInvalidPlan
	}
	return cfg, nil
}
