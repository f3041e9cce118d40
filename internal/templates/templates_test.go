package templates

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intp(v int) *int { return &v }

func TestElementJSONDispatchesOnType(t *testing.T) {
	raw := `[{"id":"a","type":"hero","order":0,"config":{"title":"Recital 2026","text_align":"center"}},
		{"id":"b","type":"pricing_tiers","order":1,"config":{"label":"Per dancer","based_on":"dancers",
		"tiers":[{"label":"Small","min_qty":1,"max_qty":10,"price_per_unit":"50"}]}}]`
	var els []Element
	require.NoError(t, json.Unmarshal([]byte(raw), &els))
	require.Len(t, els, 2)

	hero, ok := els[0].Config.(*HeroConfig)
	require.True(t, ok)
	assert.Equal(t, "Recital 2026", hero.Title)
	tiers, ok := els[1].Config.(*PricingTiersConfig)
	require.True(t, ok)
	assert.True(t, tiers.Tiers[0].PricePerUnit.Equal(dec("50")))
	assert.NoError(t, ValidateElements(els))

	out, err := json.Marshal(els[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"type":"hero"`)
}

func TestElementJSONRejectsUnknownTypeAndKeys(t *testing.T) {
	var el Element
	assert.Error(t, json.Unmarshal([]byte(`{"id":"x","type":"marquee","config":{}}`), &el))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"x","type":"hero","config":{"title":"t","colour":"red"}}`), &el))
}

func TestValidateConfig(t *testing.T) {
	assert.True(t, apperr.IsValidation(ValidateConfig(&HeroConfig{})))
	assert.True(t, apperr.IsValidation(ValidateConfig(&PricingTiersConfig{Label: "p", BasedOn: "q",
		Tiers: []Tier{{MinQty: 10, MaxQty: intp(5)}}})))
	assert.True(t, apperr.IsValidation(ValidateConfig(&DropdownConfig{Label: "d",
		Options: []Option{{Value: "a", Label: "A"}, {Value: "a", Label: "A again"}}})))
	assert.True(t, apperr.IsValidation(ValidateConfig(&PricingSummaryConfig{Label: "s",
		TaxRate: decimal.NewNullDecimal(dec("1.5"))})))

	for _, typ := range []ElementType{TypeHero, TypeRichText, TypeImage, TypeVideo, TypeNumberInput, TypeTextInput,
		TypeTextarea, TypeDatePicker, TypeDropdown, TypeServiceToggles, TypeCheckboxGroup, TypeRadioGroup,
		TypePricingTiers, TypePackageTiers, TypePricingSummary, TypeSubmitButton, TypeDivider} {
		cfg, err := DefaultConfig(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, cfg.Type())
		assert.NoError(t, ValidateConfig(cfg), typ)
	}
}

func TestAddRemoveReorderRenumber(t *testing.T) {
	els, hero, err := AddElement(nil, TypeHero, nil, nil)
	require.NoError(t, err)
	els, div, err := AddElement(els, TypeDivider, nil, nil)
	require.NoError(t, err)
	els, btn, err := AddElement(els, TypeSubmitButton, nil, intp(0))
	require.NoError(t, err)
	assert.Equal(t, []string{btn.ID, hero.ID, div.ID}, ids(els))
	assertOrdered(t, els)

	els, err = Reorder(els, []string{div.ID, hero.ID, btn.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{div.ID, hero.ID, btn.ID}, ids(els))
	assertOrdered(t, els)

	_, err = Reorder(els, []string{div.ID, hero.ID})
	assert.True(t, apperr.IsValidation(err))
	_, err = Reorder(els, []string{div.ID, div.ID, hero.ID})
	assert.True(t, apperr.IsValidation(err))

	els, err = RemoveElement(els, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{div.ID, btn.ID}, ids(els))
	assertOrdered(t, els)

	_, err = RemoveElement(els, "missing")
	assert.True(t, apperr.IsNotFound(err))

	_, _, err = AddElement(els, TypeHero, &DividerConfig{}, nil)
	assert.True(t, apperr.IsValidation(err))
}

func ids(els []Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.ID
	}
	return out
}

func assertOrdered(t *testing.T, els []Element) {
	t.Helper()
	for i, el := range els {
		assert.Equal(t, i, el.Order)
	}
}

func TestMergeSettingsKeepsSiblings(t *testing.T) {
	el := Element{ID: "h", Type: TypeHero, Config: &HeroConfig{Title: "Old", Subtitle: "Keep me", TextAlign: "left"}}

	merged, err := MergeSettings(el, json.RawMessage(`{"title":"New"}`))
	require.NoError(t, err)
	hero := merged.Config.(*HeroConfig)
	assert.Equal(t, "New", hero.Title)
	assert.Equal(t, "Keep me", hero.Subtitle)
	assert.Equal(t, "left", hero.TextAlign)
	assert.Equal(t, "Old", el.Config.(*HeroConfig).Title, "input element is not mutated")

	merged, err = MergeSettings(el, json.RawMessage(`{"subtitle":null}`))
	require.NoError(t, err)
	assert.Empty(t, merged.Config.(*HeroConfig).Subtitle)

	_, err = MergeSettings(el, json.RawMessage(`{"text_align":"diagonal"}`))
	assert.True(t, apperr.IsValidation(err))
	_, err = MergeSettings(el, json.RawMessage(`{"unknown":1}`))
	assert.True(t, apperr.IsValidation(err))
	_, err = MergeSettings(el, json.RawMessage(`[1,2]`))
	assert.True(t, apperr.IsValidation(err))
}

func TestEditList(t *testing.T) {
	el := Element{ID: "s", Type: TypeServiceToggles, Config: &ServiceTogglesConfig{Label: "Add-ons"}}

	el, err := EditList(el, "services", ListAppend, 0, json.RawMessage(`{"id":"drone","name":"Drone","base_price":"300"}`))
	require.NoError(t, err)
	el, err = EditList(el, "services", ListAppend, 0, json.RawMessage(`{"id":"bts","name":"Behind the scenes","base_price":"150"}`))
	require.NoError(t, err)

	el, err = EditList(el, "services", ListUpdate, 0, json.RawMessage(`{"name":"Drone footage"}`))
	require.NoError(t, err)
	cfg := el.Config.(*ServiceTogglesConfig)
	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "Drone footage", cfg.Services[0].Name)
	assert.Equal(t, "drone", cfg.Services[0].ID)
	assert.True(t, cfg.Services[0].BasePrice.Equal(dec("300")))
	assert.Equal(t, "Add-ons", cfg.Label)

	_, err = EditList(el, "services", ListRemove, 5, nil)
	assert.True(t, apperr.IsValidation(err))
	_, err = EditList(el, "services", ListUpdate, -1, json.RawMessage(`{}`))
	assert.True(t, apperr.IsValidation(err))
	_, err = EditList(el, "tiers", ListAppend, 0, json.RawMessage(`{}`))
	assert.True(t, apperr.IsValidation(err))
	_, err = EditList(el, "services", ListAppend, 0, json.RawMessage(`{"id":"drone","name":"Dup"}`))
	assert.True(t, apperr.IsValidation(err))

	el, err = EditList(el, "services", ListRemove, 0, nil)
	require.NoError(t, err)
	cfg = el.Config.(*ServiceTogglesConfig)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, "bts", cfg.Services[0].ID)
}

func pricedTemplate() []Element {
	return []Element{
		{ID: "qty", Type: TypeNumberInput, Order: 0, Config: &NumberInputConfig{Label: "Dancers", PricingVariable: "dancers"}},
		{ID: "tiers", Type: TypePricingTiers, Order: 1, Config: &PricingTiersConfig{Label: "Per dancer", BasedOn: "dancers",
			Tiers: []Tier{
				{Label: "Up to 10", MinQty: 1, MaxQty: intp(10), PricePerUnit: dec("50")},
				{Label: "11+", MinQty: 11, PricePerUnit: dec("40")},
			}}},
		{ID: "svc", Type: TypeServiceToggles, Order: 2, Config: &ServiceTogglesConfig{Label: "Add-ons",
			Services: []Service{{ID: "drone", Name: "Drone", BasePrice: dec("300")}, {ID: "bts", Name: "BTS", BasePrice: dec("99")}}}},
		{ID: "res", Type: TypeDropdown, Order: 3, Config: &DropdownConfig{Label: "Resolution",
			Options: []Option{{Value: "hd", Label: "HD"}, {Value: "4k", Label: "4K", PriceModifier: dec("150")}}}},
		{ID: "pkg", Type: TypePackageTiers, Order: 4, Config: &PackageTiersConfig{Label: "Packages",
			Packages: []Package{{ID: "gold", Name: "Gold", Price: dec("1000")}}}},
		{ID: "extras", Type: TypeCheckboxGroup, Order: 5, Config: &CheckboxGroupConfig{Label: "Extras",
			Options: []Option{{Value: "rush", Label: "Rush edit", PriceModifier: dec("200")}}}},
		{ID: "sum", Type: TypePricingSummary, Order: 6, Config: &PricingSummaryConfig{Label: "Total", ShowTax: true,
			TaxRate: decimal.NewNullDecimal(dec("0.13"))}},
	}
}

func TestCalculatePricing(t *testing.T) {
	q := CalculatePricing(pricedTemplate(), Values{
		Numbers:  map[string]decimal.Decimal{"dancers": dec("12")},
		Services: []string{"drone"},
		Choices:  map[string]string{"res": "4k"},
		Packages: []string{"gold"},
		Checked:  map[string][]string{"extras": {"rush"}},
	})
	require.Len(t, q.Lines, 5)
	assert.Equal(t, "11+", q.Lines[0].Label)
	assert.True(t, q.Lines[0].Total.Equal(dec("480")))
	assert.True(t, q.Subtotal.Equal(dec("2130")), q.Subtotal.String())
	assert.True(t, q.Tax.Equal(dec("276.9")), q.Tax.String())
	assert.True(t, q.Total.Equal(dec("2406.9")), q.Total.String())
}

func TestCalculatePricingTierBoundariesAndFallback(t *testing.T) {
	q := CalculatePricing(pricedTemplate(), Values{Numbers: map[string]decimal.Decimal{"dancers": dec("10")}})
	require.Len(t, q.Lines, 1)
	assert.True(t, q.Lines[0].UnitPrice.Equal(dec("50")))

	none := CalculatePricing(pricedTemplate(), Values{})
	assert.Empty(t, none.Lines)
	assert.True(t, none.Total.IsZero())

	base := []Element{{ID: "hrs", Type: TypeNumberInput, Config: &NumberInputConfig{Label: "Hours", PricingVariable: "hours",
		BasePrice: decimal.NewNullDecimal(dec("120"))}}}
	q = CalculatePricing(base, Values{Numbers: map[string]decimal.Decimal{"hours": dec("2.5")}})
	assert.True(t, q.Total.Equal(dec("300")))
	assert.True(t, q.Tax.IsZero())
}

func TestMatchTierOpenEnded(t *testing.T) {
	tiers := []Tier{{MinQty: 0, MaxQty: intp(5), PricePerUnit: dec("10")}, {MinQty: 6, PricePerUnit: dec("8")}}
	tier, ok := MatchTier(tiers, dec("5000"))
	require.True(t, ok)
	assert.True(t, tier.PricePerUnit.Equal(dec("8")))
	_, ok = MatchTier(tiers, dec("5.5"))
	assert.False(t, ok)
}
