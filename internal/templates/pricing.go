package templates

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Values are a prospect's answers to a template's priced inputs.
type Values struct {
	// Numbers holds number inputs keyed by pricing variable.
	Numbers map[string]decimal.Decimal `json:"numbers"`
	// Services lists the selected service ids.
	Services []string `json:"services"`
	// Choices maps a dropdown or radio element id to the chosen option value.
	Choices map[string]string `json:"choices"`
	// Packages lists the selected package ids.
	Packages []string `json:"packages"`
	// Checked maps a checkbox group element id to its checked option values.
	Checked map[string][]string `json:"checked"`
	// Answers carries the unpriced inputs as entered.
	Answers map[string]string `json:"answers,omitempty"`
}

// QuoteLine is one priced row of a quote.
type QuoteLine struct {
	ElementID string          `json:"element_id"`
	Label     string          `json:"label"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Quote is the priced result of a set of answers.
type Quote struct {
	Lines    []QuoteLine     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func set(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, v := range list {
		m[v] = true
	}
	return m
}

// MatchTier returns the tier whose range holds qty. A nil MaxQty has no upper bound.
func MatchTier(tiers []Tier, qty decimal.Decimal) (Tier, bool) {
	for _, t := range tiers {
		if qty.LessThan(decimal.NewFromInt(int64(t.MinQty))) {
			continue
		}
		if t.MaxQty != nil && qty.GreaterThan(decimal.NewFromInt(int64(*t.MaxQty))) {
			continue
		}
		return t, true
	}
	return Tier{}, false
}

// CalculatePricing prices values against elements. Lines follow element order.
func CalculatePricing(elements []Element, values Values) Quote {
	sorted := append([]Element(nil), elements...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	tiersFor := map[string]*PricingTiersConfig{}
	var summary *PricingSummaryConfig
	for _, el := range sorted {
		switch cfg := el.Config.(type) {
		case *PricingTiersConfig:
			if _, ok := tiersFor[cfg.BasedOn]; !ok {
				tiersFor[cfg.BasedOn] = cfg
			}
		case *PricingSummaryConfig:
			if summary == nil {
				summary = cfg
			}
		}
	}

	services := set(values.Services)
	packages := set(values.Packages)
	one := decimal.NewFromInt(1)
	q := Quote{Lines: []QuoteLine{}}
	add := func(elID, label string, qty, unit decimal.Decimal) {
		q.Lines = append(q.Lines, QuoteLine{ElementID: elID, Label: label, Quantity: qty, UnitPrice: unit, Total: qty.Mul(unit)})
	}

	for _, el := range sorted {
		switch cfg := el.Config.(type) {
		case *NumberInputConfig:
			if cfg.PricingVariable == "" {
				continue
			}
			qty, ok := values.Numbers[cfg.PricingVariable]
			if !ok || !qty.IsPositive() {
				continue
			}
			if tc, ok := tiersFor[cfg.PricingVariable]; ok {
				if t, ok := MatchTier(tc.Tiers, qty); ok {
					label := t.Label
					if label == "" {
						label = cfg.Label
					}
					add(el.ID, label, qty, t.PricePerUnit)
				}
			} else if cfg.BasePrice.Valid {
				add(el.ID, cfg.Label, qty, cfg.BasePrice.Decimal)
			}
		case *ServiceTogglesConfig:
			for _, s := range cfg.Services {
				if services[s.ID] {
					add(el.ID, s.Name, one, s.BasePrice)
				}
			}
		case *DropdownConfig:
			addChoice(add, el.ID, cfg.Options, values.Choices[el.ID])
		case *RadioGroupConfig:
			addChoice(add, el.ID, cfg.Options, values.Choices[el.ID])
		case *CheckboxGroupConfig:
			checked := set(values.Checked[el.ID])
			for _, o := range cfg.Options {
				if checked[o.Value] && !o.PriceModifier.IsZero() {
					add(el.ID, o.Label, one, o.PriceModifier)
				}
			}
		case *PackageTiersConfig:
			for _, p := range cfg.Packages {
				if packages[p.ID] {
					add(el.ID, p.Name, one, p.Price)
				}
			}
		}
	}

	for _, l := range q.Lines {
		q.Subtotal = q.Subtotal.Add(l.Total)
	}
	if summary != nil && summary.ShowTax && summary.TaxRate.Valid {
		q.TaxRate = summary.TaxRate.Decimal
		q.Tax = q.Subtotal.Mul(q.TaxRate).Round(2)
	}
	q.Total = q.Subtotal.Add(q.Tax)
	return q
}

func addChoice(add func(elID, label string, qty, unit decimal.Decimal), elID string, opts []Option, chosen string) {
	if chosen == "" {
		return
	}
	for _, o := range opts {
		if o.Value == chosen && !o.PriceModifier.IsZero() {
			add(elID, o.Label, decimal.NewFromInt(1), o.PriceModifier)
			return
		}
	}
}
