package catalog

import (
	"fmt"

	"github.com/samber/lo"
)

// PrimaryLineItem returns the line item that represents a plan at checkout.
// Lemon Squeezy plans carry a single variant; other providers prefer the flat
// line item and fall back to the first one.
func (c *Config) PrimaryLineItem(planID string) (LineItem, error) {
	_, plan, err := c.ProductPlanPair(planID)
	if err != nil {
		return LineItem{}, err
	}
	if len(plan.LineItems) == 0 {
		return LineItem{}, fmt.Errorf("%w: base line item for plan %q", ErrNotFound, planID)
	}
	if c.Provider == ProviderLemonSqueezy {
		return plan.LineItems[0], nil
	}
	if flat, ok := lo.Find(plan.LineItems, func(li LineItem) bool { return li.Type == LineItemFlat }); ok {
		return flat, nil
	}
	return plan.LineItems[0], nil
}

// ProductPlanPair finds the plan with planID and the product it belongs to.
func (c *Config) ProductPlanPair(planID string) (Product, Plan, error) {
	for _, product := range c.Products {
		if plan, ok := lo.Find(product.Plans, func(p Plan) bool { return p.ID == planID }); ok {
			return product, plan, nil
		}
	}
	return Product{}, Plan{}, fmt.Errorf("%w: plan %q", ErrNotFound, planID)
}

// ProductPlanPairByVariantID finds the plan that contains the line item
// (provider price or variant) with variantID.
func (c *Config) ProductPlanPairByVariantID(variantID string) (Product, Plan, error) {
	for _, product := range c.Products {
		for _, plan := range product.Plans {
			if lo.ContainsBy(plan.LineItems, func(li LineItem) bool { return li.ID == variantID }) {
				return product, plan, nil
			}
		}
	}
	return Product{}, Plan{}, fmt.Errorf("%w: plan for variant %q", ErrNotFound, variantID)
}

// LineItemType returns the type of the line item with id.
func (c *Config) LineItemType(id string) (LineItemType, error) {
	item, err := c.LineItem(id)
	if err != nil {
		return "", err
	}
	return item.Type, nil
}

// LineItem returns the line item with id.
func (c *Config) LineItem(id string) (LineItem, error) {
	for _, product := range c.Products {
		for _, plan := range product.Plans {
			if item, ok := lo.Find(plan.LineItems, func(li LineItem) bool { return li.ID == id }); ok {
				return item, nil
			}
		}
	}
	return LineItem{}, fmt.Errorf("%w: line item %q", ErrNotFound, id)
}

// PlanIntervals lists the distinct plan intervals in declaration order.
func (c *Config) PlanIntervals() []Interval {
	var intervals []Interval
	for _, product := range c.Products {
		for _, plan := range product.Plans {
			if plan.Interval != "" {
				intervals = append(intervals, plan.Interval)
			}
		}
	}
	return lo.Uniq(intervals)
}

// VisibleProducts returns the products shown on pricing pages.
func (c *Config) VisibleProducts() []Product {
	return lo.Reject(c.Products, func(p Product, _ int) bool { return p.Hidden })
}
