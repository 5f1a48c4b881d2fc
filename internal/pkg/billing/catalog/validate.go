package catalog

import (
	"strings"

	"github.com/samber/lo"
)

// rule is one independent check over the whole catalog.
type rule func(cfg Config) []Violation

// rules run in order; each one reports its own violations and never depends
// on another rule having passed.
var rules = []rule{
	validateStructure,
	validateLineItems,
	validatePlans,
	validateProducts,
	validateUniqueLineItemIDs,
	validateProviderConstraints,
}

// Validate runs every rule against cfg and returns all violations.
func Validate(cfg Config) []Violation {
	var out []Violation
	for _, r := range rules {
		out = append(out, r(cfg)...)
	}
	return out
}

var structValidator = NewValidator()

func validateStructure(cfg Config) []Violation {
	return ViolationsFromError(structValidator.Struct(cfg))
}

func validateLineItems(cfg Config) []Violation {
	var out []Violation
	eachLineItem(cfg, func(at []string, _ Plan, item LineItem) {
		out = append(out, lineItemViolations(at, item)...)
	})
	return out
}

func lineItemViolations(at []string, item LineItem) []Violation {
	var out []Violation
	if item.Cost.IsNegative() {
		out = append(out, Violation{Path: extend(at, "cost"), Message: "Cost must be greater than or equal to 0"})
	}
	if item.SetupFee != nil && !item.SetupFee.IsPositive() {
		out = append(out, Violation{Path: extend(at, "setupFee"), Message: "Setup fee must be a positive amount"})
	}
	if item.Type == LineItemMetered {
		if item.Unit == "" {
			out = append(out, Violation{Path: extend(at, "unit"), Message: "Metered line items must have a unit"})
		}
		if len(item.Tiers) == 0 {
			out = append(out, Violation{Path: extend(at, "tiers"), Message: "Metered line items must have tiers"})
		}
		if !item.Cost.IsZero() {
			out = append(out, Violation{Path: extend(at, "cost"), Message: "Metered line items must have a cost of 0, use tiers instead"})
		}
	}
	for t, tier := range item.Tiers {
		if tier.Cost.IsNegative() {
			out = append(out, Violation{Path: extend(at, "tiers", t, "cost"), Message: "Tier cost must be greater than or equal to 0"})
		}
		if !tier.UpTo.Unlimited && tier.UpTo.Value <= 0 {
			out = append(out, Violation{Path: extend(at, "tiers", t, "upTo"), Message: "Tier limit must be positive or unlimited"})
		}
	}
	return out
}

func validatePlans(cfg Config) []Violation {
	var out []Violation
	eachPlan(cfg, func(at []string, _ Product, plan Plan) {
		out = append(out, planViolations(at, plan)...)
	})
	return out
}

func planViolations(at []string, plan Plan) []Violation {
	var out []Violation
	switch plan.PaymentType {
	case PaymentTypeRecurring:
		if plan.Interval == "" {
			out = append(out, Violation{Path: extend(at, "interval"), Message: "Recurring plans must have an interval"})
		}
	case PaymentTypeOneTime:
		if plan.Interval != "" {
			out = append(out, Violation{Path: extend(at, "paymentType", "interval"), Message: "One-time plans must not have an interval"})
		}
		if lo.SomeBy(plan.LineItems, func(li LineItem) bool { return li.Type != LineItemFlat }) {
			out = append(out, Violation{Path: extend(at, "paymentType", "lineItems"), Message: "One-time plans must only have flat line items"})
		}
	}

	if plan.Custom && len(plan.LineItems) > 0 {
		out = append(out, Violation{Path: extend(at, "lineItems"), Message: "Custom plans must not have line items"})
	}
	if !plan.Custom && len(plan.LineItems) == 0 {
		out = append(out, Violation{Path: extend(at, "lineItems"), Message: "Non-custom plans must have at least one line item"})
	}

	if lo.CountBy(plan.LineItems, func(li LineItem) bool { return li.Type == LineItemPerSeat }) > 1 {
		out = append(out, Violation{Path: extend(at, "lineItems"), Message: "Plans can only have one per-seat line item"})
	}
	if lo.CountBy(plan.LineItems, func(li LineItem) bool { return li.Type == LineItemFlat }) > 1 {
		out = append(out, Violation{Path: extend(at, "lineItems"), Message: "Plans can only have one flat line item"})
	}
	return out
}

func validateProducts(cfg Config) []Violation {
	var out []Violation
	for p, product := range cfg.Products {
		ids := lo.Map(product.Plans, func(plan Plan, _ int) string { return plan.ID })
		if dup := lo.FindDuplicates(ids); len(dup) > 0 {
			out = append(out, Violation{Path: path("products", p, "plans"), Message: "Plan IDs must be unique: " + strings.Join(dup, ", ")})
		}
	}
	return out
}

func validateUniqueLineItemIDs(cfg Config) []Violation {
	var ids []string
	eachLineItem(cfg, func(_ []string, _ Plan, item LineItem) {
		ids = append(ids, item.ID)
	})
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return []Violation{{Path: path("products"), Message: "Line item IDs must be unique: " + strings.Join(dup, ", ")}}
	}
	return nil
}

func validateProviderConstraints(cfg Config) []Violation {
	var out []Violation
	if cfg.Provider == ProviderLemonSqueezy {
		eachPlan(cfg, func(at []string, _ Product, plan Plan) {
			if len(plan.LineItems) > 1 {
				out = append(out, Violation{Path: extend(at, "lineItems"), Message: "Lemon Squeezy only supports one line item per plan"})
			}
		})
		return out
	}
	eachLineItem(cfg, func(at []string, _ Plan, item LineItem) {
		if item.SetupFee != nil {
			out = append(out, Violation{Path: extend(at, "setupFee"), Message: "Setup fees are only supported by Lemon Squeezy"})
		}
	})
	return out
}

func eachPlan(cfg Config, fn func(at []string, product Product, plan Plan)) {
	for p, product := range cfg.Products {
		for i, plan := range product.Plans {
			fn(path("products", p, "plans", i), product, plan)
		}
	}
}

func eachLineItem(cfg Config, fn func(at []string, plan Plan, item LineItem)) {
	eachPlan(cfg, func(at []string, _ Product, plan Plan) {
		for i, item := range plan.LineItems {
			fn(extend(at, "lineItems", i), plan, item)
		}
	})
}
