// Package templates holds proposal templates: a typed element list, the pure editor operations
// applied to it, and the price calculator run against a prospect's answers.
package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/commandcentered/backend/internal/apperr"
)

// ElementType names one of the element variants a template may contain.
type ElementType string

const (
	TypeHero           ElementType = "hero"
	TypeRichText       ElementType = "rich_text"
	TypeImage          ElementType = "image"
	TypeVideo          ElementType = "video"
	TypeNumberInput    ElementType = "number_input"
	TypeTextInput      ElementType = "text_input"
	TypeTextarea       ElementType = "textarea"
	TypeDatePicker     ElementType = "date_picker"
	TypeDropdown       ElementType = "dropdown"
	TypeServiceToggles ElementType = "service_toggles"
	TypeCheckboxGroup  ElementType = "checkbox_group"
	TypeRadioGroup     ElementType = "radio_group"
	TypePricingTiers   ElementType = "pricing_tiers"
	TypePackageTiers   ElementType = "package_tiers"
	TypePricingSummary ElementType = "pricing_summary"
	TypeSubmitButton   ElementType = "submit_button"
	TypeDivider        ElementType = "divider"
)

// ElementConfig is the settings of one element variant.
type ElementConfig interface {
	Type() ElementType
}

// checker is implemented by configs with rules the struct tags cannot express.
type checker interface {
	check() error
}

// Element is one block of a template.
type Element struct {
	ID     string        `json:"id"`
	Type   ElementType   `json:"type"`
	Order  int           `json:"order"`
	Config ElementConfig `json:"config"`
}

type elementJSON struct {
	ID     string          `json:"id"`
	Type   ElementType     `json:"type"`
	Order  int             `json:"order"`
	Config json.RawMessage `json:"config"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	if e.Config == nil {
		return nil, fmt.Errorf("element %s has no config", e.ID)
	}
	cfg, err := json.Marshal(e.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(elementJSON{ID: e.ID, Type: e.Config.Type(), Order: e.Order, Config: cfg})
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var raw elementJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg, err := decodeConfig(raw.Type, raw.Config)
	if err != nil {
		return err
	}
	*e = Element{ID: raw.ID, Type: raw.Type, Order: raw.Order, Config: cfg}
	return nil
}

// NewConfig returns an empty config for t, or a validation error for an unknown type.
func NewConfig(t ElementType) (ElementConfig, error) {
	switch t {
	case TypeHero:
		return &HeroConfig{}, nil
	case TypeRichText:
		return &RichTextConfig{}, nil
	case TypeImage:
		return &ImageConfig{}, nil
	case TypeVideo:
		return &VideoConfig{}, nil
	case TypeNumberInput:
		return &NumberInputConfig{}, nil
	case TypeTextInput:
		return &TextInputConfig{}, nil
	case TypeTextarea:
		return &TextareaConfig{}, nil
	case TypeDatePicker:
		return &DatePickerConfig{}, nil
	case TypeDropdown:
		return &DropdownConfig{}, nil
	case TypeServiceToggles:
		return &ServiceTogglesConfig{}, nil
	case TypeCheckboxGroup:
		return &CheckboxGroupConfig{}, nil
	case TypeRadioGroup:
		return &RadioGroupConfig{}, nil
	case TypePricingTiers:
		return &PricingTiersConfig{}, nil
	case TypePackageTiers:
		return &PackageTiersConfig{}, nil
	case TypePricingSummary:
		return &PricingSummaryConfig{}, nil
	case TypeSubmitButton:
		return &SubmitButtonConfig{}, nil
	case TypeDivider:
		return &DividerConfig{}, nil
	}
	return nil, apperr.Validation("unknown element type %q", t)
}

// decodeConfig strictly decodes raw into the config struct for t. Unknown keys are rejected.
func decodeConfig(t ElementType, raw json.RawMessage) (ElementConfig, error) {
	cfg, err := NewConfig(t)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, apperr.Validation("%s config: %v", t, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig checks cfg's struct tags and cross-field rules.
func ValidateConfig(cfg ElementConfig) error {
	if cfg == nil {
		return apperr.Validation("element config is required")
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation("%s: %s failed on %s", cfg.Type(), fe.Namespace(), fe.Tag())
		}
		return apperr.Validation("%s: %v", cfg.Type(), err)
	}
	if c, ok := cfg.(checker); ok {
		if err := c.check(); err != nil {
			return apperr.Validation("%s: %v", cfg.Type(), err)
		}
	}
	return nil
}

// ValidateElements checks every element and that ids are present and unique.
func ValidateElements(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for i, el := range elements {
		if el.ID == "" {
			return apperr.Validation("element %d has no id", i)
		}
		if _, dup := seen[el.ID]; dup {
			return apperr.Validation("duplicate element id %q", el.ID)
		}
		seen[el.ID] = struct{}{}
		if el.Config == nil || el.Config.Type() != el.Type {
			return apperr.Validation("element %q config does not match type %q", el.ID, el.Type)
		}
		if err := ValidateConfig(el.Config); err != nil {
			return err
		}
	}
	return nil
}

// Option is a choice in a dropdown, radio or checkbox group.
type Option struct {
	Value         string          `json:"value" validate:"required"`
	Label         string          `json:"label" validate:"required"`
	Description   string          `json:"description,omitempty"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// Service is a toggleable add-on.
type Service struct {
	ID             string          `json:"id" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description,omitempty"`
	BasePrice      decimal.Decimal `json:"base_price"`
	Icon           string          `json:"icon,omitempty"`
	DefaultEnabled bool            `json:"default_enabled"`
}

// Tier prices a quantity range. A nil MaxQty is open-ended.
type Tier struct {
	Label        string          `json:"label"`
	MinQty       int             `json:"min_qty" validate:"gte=0"`
	MaxQty       *int            `json:"max_qty"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// Package is a fixed-price bundle.
type Package struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Icon        string          `json:"icon,omitempty"`
	Features    []string        `json:"features"`
	Recommended bool            `json:"recommended"`
}

type HeroConfig struct {
	Title           string `json:"title" validate:"required"`
	Subtitle        string `json:"subtitle"`
	TextAlign       string `json:"text_align" validate:"omitempty,oneof=left center right"`
	BackgroundColor string `json:"background_color" validate:"omitempty,hexcolor"`
	TextColor       string `json:"text_color" validate:"omitempty,hexcolor"`
	BackgroundImage string `json:"background_image" validate:"omitempty,url"`
}

type RichTextConfig struct {
	Content   string `json:"content"`
	TextAlign string `json:"text_align" validate:"omitempty,oneof=left center right justify"`
	FontSize  string `json:"font_size" validate:"omitempty,oneof=sm base lg xl"`
}

type ImageConfig struct {
	ImageURL string `json:"image_url" validate:"omitempty,url"`
	AltText  string `json:"alt_text"`
	Caption  string `json:"caption"`
	Width    string `json:"width" validate:"omitempty,oneof=full wide medium small"`
}

type VideoConfig struct {
	EmbedURL    string `json:"embed_url" validate:"omitempty,url"`
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 4:3 1:1 9:16"`
}

type NumberInputConfig struct {
	Label           string              `json:"label" validate:"required"`
	Placeholder     string              `json:"placeholder"`
	Min             *float64            `json:"min"`
	Max             *float64            `json:"max"`
	Step            *float64            `json:"step" validate:"omitempty,gt=0"`
	DefaultValue    *float64            `json:"default_value"`
	HelpText        string              `json:"help_text"`
	Required        bool                `json:"required"`
	PricingVariable string              `json:"pricing_variable" validate:"omitempty,max=64"`
	BasePrice       decimal.NullDecimal `json:"base_price"`
}

type TextInputConfig struct {
	Label       string `json:"label" validate:"required"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
	HelpText    string `json:"help_text"`
}

type TextareaConfig struct {
	Label       string `json:"label" validate:"required"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
	HelpText    string `json:"help_text"`
	Rows        int    `json:"rows" validate:"omitempty,gte=1,lte=50"`
}

type DatePickerConfig struct {
	Label        string `json:"label" validate:"required"`
	Placeholder  string `json:"placeholder"`
	Required     bool   `json:"required"`
	HelpText     string `json:"help_text"`
	DefaultValue string `json:"default_value" validate:"omitempty,datetime=2006-01-02"`
	MinDate      string `json:"min_date" validate:"omitempty,datetime=2006-01-02"`
	MaxDate      string `json:"max_date" validate:"omitempty,datetime=2006-01-02"`
}

type DropdownConfig struct {
	Label       string   `json:"label" validate:"required"`
	Placeholder string   `json:"placeholder"`
	Required    bool     `json:"required"`
	HelpText    string   `json:"help_text"`
	Options     []Option `json:"options" validate:"dive"`
}

type ServiceTogglesConfig struct {
	Label         string    `json:"label" validate:"required"`
	Services      []Service `json:"services" validate:"dive"`
	Layout        string    `json:"layout" validate:"omitempty,oneof=list grid"`
	AllowMultiple bool      `json:"allow_multiple"`
}

type CheckboxGroupConfig struct {
	Label    string   `json:"label" validate:"required"`
	Required bool     `json:"required"`
	Options  []Option `json:"options" validate:"dive"`
}

type RadioGroupConfig struct {
	Label    string   `json:"label" validate:"required"`
	Required bool     `json:"required"`
	Layout   string   `json:"layout" validate:"omitempty,oneof=vertical horizontal"`
	Options  []Option `json:"options" validate:"dive"`
}

type PricingTiersConfig struct {
	Label           string `json:"label" validate:"required"`
	BasedOn         string `json:"based_on" validate:"required"`
	ShowCalculation bool   `json:"show_calculation"`
	Tiers           []Tier `json:"tiers" validate:"dive"`
}

type PackageTiersConfig struct {
	Label         string    `json:"label" validate:"required"`
	Layout        string    `json:"layout" validate:"omitempty,oneof=horizontal vertical"`
	AllowMultiple bool      `json:"allow_multiple"`
	Packages      []Package `json:"packages" validate:"dive"`
}

type PricingSummaryConfig struct {
	Label          string              `json:"label" validate:"required"`
	ShowBreakdown  bool                `json:"show_breakdown"`
	ShowTax        bool                `json:"show_tax"`
	TaxRate        decimal.NullDecimal `json:"tax_rate"`
	ShowDiscount   bool                `json:"show_discount"`
	CurrencySymbol string              `json:"currency_symbol" validate:"max=4"`
	Position       string              `json:"position" validate:"omitempty,oneof=inline sticky"`
}

type SubmitButtonConfig struct {
	Label          string `json:"label" validate:"required"`
	Variant        string `json:"variant" validate:"omitempty,oneof=primary secondary outline"`
	Size           string `json:"size" validate:"omitempty,oneof=sm md lg"`
	FullWidth      bool   `json:"full_width"`
	SuccessMessage string `json:"success_message"`
	RedirectURL    string `json:"redirect_url" validate:"omitempty,url"`
}

type DividerConfig struct {
	Style string `json:"style" validate:"omitempty,oneof=solid dashed dotted"`
}

func (*HeroConfig) Type() ElementType           { return TypeHero }
func (*RichTextConfig) Type() ElementType       { return TypeRichText }
func (*ImageConfig) Type() ElementType          { return TypeImage }
func (*VideoConfig) Type() ElementType          { return TypeVideo }
func (*NumberInputConfig) Type() ElementType    { return TypeNumberInput }
func (*TextInputConfig) Type() ElementType      { return TypeTextInput }
func (*TextareaConfig) Type() ElementType       { return TypeTextarea }
func (*DatePickerConfig) Type() ElementType     { return TypeDatePicker }
func (*DropdownConfig) Type() ElementType       { return TypeDropdown }
func (*ServiceTogglesConfig) Type() ElementType { return TypeServiceToggles }
func (*CheckboxGroupConfig) Type() ElementType  { return TypeCheckboxGroup }
func (*RadioGroupConfig) Type() ElementType     { return TypeRadioGroup }
func (*PricingTiersConfig) Type() ElementType   { return TypePricingTiers }
func (*PackageTiersConfig) Type() ElementType   { return TypePackageTiers }
func (*PricingSummaryConfig) Type() ElementType { return TypePricingSummary }
func (*SubmitButtonConfig) Type() ElementType   { return TypeSubmitButton }
func (*DividerConfig) Type() ElementType        { return TypeDivider }

func (c *NumberInputConfig) check() error {
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return errors.New("min is greater than max")
	}
	if c.BasePrice.Valid && c.BasePrice.Decimal.IsNegative() {
		return errors.New("base_price is negative")
	}
	return nil
}

func checkOptions(opts []Option) error {
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		if _, dup := seen[o.Value]; dup {
			return fmt.Errorf("duplicate option value %q", o.Value)
		}
		seen[o.Value] = struct{}{}
	}
	return nil
}

func (c *DropdownConfig) check() error      { return checkOptions(c.Options) }
func (c *CheckboxGroupConfig) check() error { return checkOptions(c.Options) }
func (c *RadioGroupConfig) check() error    { return checkOptions(c.Options) }

func (c *ServiceTogglesConfig) check() error {
	seen := make(map[string]struct{}, len(c.Services))
	for _, s := range c.Services {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate service id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.BasePrice.IsNegative() {
			return fmt.Errorf("service %q has a negative price", s.ID)
		}
	}
	return nil
}

func (c *PricingTiersConfig) check() error {
	for i, t := range c.Tiers {
		if t.MaxQty != nil && *t.MaxQty < t.MinQty {
			return fmt.Errorf("tier %d: max_qty is below min_qty", i)
		}
		if t.PricePerUnit.IsNegative() {
			return fmt.Errorf("tier %d: price_per_unit is negative", i)
		}
	}
	return nil
}

func (c *PackageTiersConfig) check() error {
	seen := make(map[string]struct{}, len(c.Packages))
	for _, p := range c.Packages {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate package id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Price.IsNegative() {
			return fmt.Errorf("package %q has a negative price", p.ID)
		}
	}
	return nil
}

func (c *PricingSummaryConfig) check() error {
	if c.TaxRate.Valid && (c.TaxRate.Decimal.IsNegative() || c.TaxRate.Decimal.GreaterThan(decimal.NewFromInt(1))) {
		return errors.New("tax_rate must be between 0 and 1")
	}
	return nil
}

// DefaultConfig returns the starter settings the editor places for a new element of type t.
func DefaultConfig(t ElementType) (ElementConfig, error) {
	one := func(v float64) *float64 { return &v }
	switch t {
	case TypeHero:
		return &HeroConfig{Title: "Your Event Title", Subtitle: "Tell us about your event", TextAlign: "center"}, nil
	case TypeRichText:
		return &RichTextConfig{Content: "Add your content here", TextAlign: "left", FontSize: "base"}, nil
	case TypeImage:
		return &ImageConfig{Width: "full"}, nil
	case TypeVideo:
		return &VideoConfig{AspectRatio: "16:9"}, nil
	case TypeNumberInput:
		return &NumberInputConfig{Label: "Quantity", Min: one(0), Step: one(1)}, nil
	case TypeTextInput:
		return &TextInputConfig{Label: "Text"}, nil
	case TypeTextarea:
		return &TextareaConfig{Label: "Details", Rows: 4}, nil
	case TypeDatePicker:
		return &DatePickerConfig{Label: "Event Date", Required: true}, nil
	case TypeDropdown:
		return &DropdownConfig{Label: "Select an option", Options: []Option{}}, nil
	case TypeServiceToggles:
		return &ServiceTogglesConfig{Label: "Services", Services: []Service{}, Layout: "list", AllowMultiple: true}, nil
	case TypeCheckboxGroup:
		return &CheckboxGroupConfig{Label: "Options", Options: []Option{}}, nil
	case TypeRadioGroup:
		return &RadioGroupConfig{Label: "Choose one", Layout: "vertical", Options: []Option{}}, nil
	case TypePricingTiers:
		return &PricingTiersConfig{Label: "Pricing", BasedOn: "quantity", ShowCalculation: true, Tiers: []Tier{}}, nil
	case TypePackageTiers:
		return &PackageTiersConfig{Label: "Packages", Layout: "horizontal", Packages: []Package{}}, nil
	case TypePricingSummary:
		return &PricingSummaryConfig{Label: "Estimated Total", ShowBreakdown: true, CurrencySymbol: "$", Position: "inline"}, nil
	case TypeSubmitButton:
		return &SubmitButtonConfig{Label: "Submit", Variant: "primary", Size: "lg", FullWidth: true,
			SuccessMessage: "Thanks! We'll be in touch shortly."}, nil
	case TypeDivider:
		return &DividerConfig{Style: "solid"}, nil
	}
	return nil, apperr.Validation("unknown element type %q", t)
}
