package service

import (
	"fmt"

	"github.com/digkill/resumegate/internal/models"
)

const currencyINR = "INR"

// Plan is one purchasable package as shown at checkout.
type Plan struct {
	PackageType models.PackageType `json:"packageType"`
	Tier        string             `json:"tier"`
	Title       string             `json:"title"`
	Currency    string             `json:"currency"`
	AmountPaise int                `json:"amountPaise"`
	Credits     int                `json:"credits"`
	Fields      models.FieldSet    `json:"fields"`
	Features    []string           `json:"features"`
}

type PlanService struct {
	order []models.PackageType
}

func NewPlanService() *PlanService {
	return &PlanService{order: []models.PackageType{models.PackageBasic, models.PackagePro, models.PackageFull}}
}

func (s *PlanService) List() []Plan {
	plans := make([]Plan, 0, len(s.order))
	for _, pkg := range s.order {
		plan, err := s.Get(pkg)
		if err != nil {
			continue
		}
		plans = append(plans, *plan)
	}
	return plans
}

func (s *PlanService) Get(pkg models.PackageType) (*Plan, error) {
	price, ok := models.Pricing[pkg]
	if !ok {
		return nil, fmt.Errorf("plan not found: %s", pkg)
	}
	return &Plan{
		PackageType: pkg,
		Tier:        pkg.Tier(),
		Title:       price.Label,
		Currency:    currencyINR,
		AmountPaise: price.AmountPaise,
		Credits:     models.InitialCredits,
		Fields:      models.FieldsFor(pkg),
		Features:    append([]string(nil), price.Features...),
	}, nil
}
