package templates

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/apperr"
)

// listSettings names the list-valued keys each element type exposes to the list editor.
var listSettings = map[ElementType]string{
	TypeServiceToggles: "services",
	TypePricingTiers:   "tiers",
	TypePackageTiers:   "packages",
	TypeDropdown:       "options",
	TypeRadioGroup:     "options",
	TypeCheckboxGroup:  "options",
}

func renumber(elements []Element) []Element {
	for i := range elements {
		elements[i].Order = i
	}
	return elements
}

func indexOf(elements []Element, id string) int {
	for i, el := range elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

// AddElement inserts a new element of type t at position at (appended when at is nil or out of
// range). A nil cfg places the default settings for t.
func AddElement(elements []Element, t ElementType, cfg ElementConfig, at *int) ([]Element, Element, error) {
	if cfg == nil {
		var err error
		if cfg, err = DefaultConfig(t); err != nil {
			return nil, Element{}, err
		}
	}
	if cfg.Type() != t {
		return nil, Element{}, apperr.Validation("config does not match type %q", t)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, Element{}, err
	}
	el := Element{ID: uuid.NewString(), Type: t, Config: cfg}
	out := make([]Element, 0, len(elements)+1)
	pos := len(elements)
	if at != nil && *at >= 0 && *at < len(elements) {
		pos = *at
	}
	out = append(out, elements[:pos]...)
	out = append(out, el)
	out = append(out, elements[pos:]...)
	renumber(out)
	el.Order = pos
	return out, el, nil
}

// RemoveElement drops the element with id.
func RemoveElement(elements []Element, id string) ([]Element, error) {
	i := indexOf(elements, id)
	if i < 0 {
		return nil, apperr.NotFound("element")
	}
	out := make([]Element, 0, len(elements)-1)
	out = append(out, elements[:i]...)
	out = append(out, elements[i+1:]...)
	return renumber(out), nil
}

// Reorder arranges elements in the order of ids, which must name every element exactly once.
func Reorder(elements []Element, ids []string) ([]Element, error) {
	if len(ids) != len(elements) {
		return nil, apperr.Validation("reorder must list all %d elements", len(elements))
	}
	out := make([]Element, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, apperr.Validation("element %q listed twice", id)
		}
		seen[id] = struct{}{}
		i := indexOf(elements, id)
		if i < 0 {
			return nil, apperr.NotFound("element")
		}
		out = append(out, elements[i])
	}
	return renumber(out), nil
}

func configMap(cfg ElementConfig) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func objectPatch(patch json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(patch, &m); err != nil || m == nil {
		return nil, apperr.Validation("settings patch must be a JSON object")
	}
	return m, nil
}

// rebuild decodes m as the config of t and validates it.
func rebuild(t ElementType, m map[string]json.RawMessage) (ElementConfig, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(t, b)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeSettings applies a partial settings object to el. Keys in patch replace the same keys in
// the config; a null value resets the key. Keys absent from patch are kept.
func MergeSettings(el Element, patch json.RawMessage) (Element, error) {
	p, err := objectPatch(patch)
	if err != nil {
		return Element{}, err
	}
	m, err := configMap(el.Config)
	if err != nil {
		return Element{}, err
	}
	for k, v := range p {
		if string(v) == "null" {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	cfg, err := rebuild(el.Type, m)
	if err != nil {
		return Element{}, err
	}
	el.Config = cfg
	return el, nil
}

// ListOp is an edit to a list-valued setting.
type ListOp string

const (
	ListAppend ListOp = "append"
	ListUpdate ListOp = "update"
	ListRemove ListOp = "remove"
)

// EditList applies op to the list setting key of el. Update merges item onto the entry at index;
// append adds item; remove drops the entry at index.
func EditList(el Element, key string, op ListOp, index int, item json.RawMessage) (Element, error) {
	if listSettings[el.Type] != key {
		return Element{}, apperr.Validation("%s has no list setting %q", el.Type, key)
	}
	m, err := configMap(el.Config)
	if err != nil {
		return Element{}, err
	}
	var list []json.RawMessage
	if raw, ok := m[key]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &list); err != nil {
			return Element{}, err
		}
	}
	inRange := index >= 0 && index < len(list)

	switch op {
	case ListAppend:
		if _, err := objectPatch(item); err != nil {
			return Element{}, err
		}
		list = append(list, item)
	case ListUpdate:
		if !inRange {
			return Element{}, apperr.Validation("%s index %d out of range", key, index)
		}
		p, err := objectPatch(item)
		if err != nil {
			return Element{}, err
		}
		cur := map[string]json.RawMessage{}
		if err := json.Unmarshal(list[index], &cur); err != nil {
			return Element{}, err
		}
		for k, v := range p {
			cur[k] = v
		}
		b, err := json.Marshal(cur)
		if err != nil {
			return Element{}, err
		}
		list[index] = b
	case ListRemove:
		if !inRange {
			return Element{}, apperr.Validation("%s index %d out of range", key, index)
		}
		list = append(list[:index], list[index+1:]...)
	default:
		return Element{}, apperr.Validation("unknown list operation %q", op)
	}

	if list == nil {
		list = []json.RawMessage{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return Element{}, err
	}
	m[key] = b
	cfg, err := rebuild(el.Type, m)
	if err != nil {
		return Element{}, err
	}
	el.Config = cfg
	return el, nil
}

// ReplaceElement swaps the element with the same id.
func ReplaceElement(elements []Element, el Element) ([]Element, error) {
	i := indexOf(elements, el.ID)
	if i < 0 {
		return nil, apperr.NotFound("element")
	}
	out := append([]Element(nil), elements...)
	el.Order = i
	out[i] = el
	return out, nil
}

// Find returns the element with id.
func Find(elements []Element, id string) (Element, error) {
	i := indexOf(elements, id)
	if i < 0 {
		return Element{}, apperr.NotFound("element")
	}
	return elements[i], nil
}
