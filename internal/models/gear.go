package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GearCategory groups inventory items.
type GearCategory string

const (
	GearCategoryCamera      GearCategory = "CAMERA"
	GearCategoryLens        GearCategory = "LENS"
	GearCategoryAudio       GearCategory = "AUDIO"
	GearCategoryComputer    GearCategory = "COMPUTER"
	GearCategoryRigging     GearCategory = "RIGGING"
	GearCategoryCable       GearCategory = "CABLE"
	GearCategoryLighting    GearCategory = "LIGHTING"
	GearCategoryAccessories GearCategory = "ACCESSORIES"
	GearCategoryStabilizers GearCategory = "STABILIZERS"
	GearCategoryDrones      GearCategory = "DRONES"
	GearCategoryMonitors    GearCategory = "MONITORS"
	GearCategoryOther       GearCategory = "OTHER"
)

var gearCategories = map[GearCategory]bool{
	GearCategoryCamera: true, GearCategoryLens: true, GearCategoryAudio: true, GearCategoryComputer: true,
	GearCategoryRigging: true, GearCategoryCable: true, GearCategoryLighting: true, GearCategoryAccessories: true,
	GearCategoryStabilizers: true, GearCategoryDrones: true, GearCategoryMonitors: true, GearCategoryOther: true,
}

func (c GearCategory) Valid() bool { return gearCategories[c] }

// GearStatus is the condition of an item.
type GearStatus string

const (
	GearStatusAvailable   GearStatus = "AVAILABLE"
	GearStatusInUse       GearStatus = "IN_USE"
	GearStatusMaintenance GearStatus = "MAINTENANCE"
	GearStatusRetired     GearStatus = "RETIRED"
)

func (s GearStatus) Valid() bool {
	switch s {
	case GearStatusAvailable, GearStatusInUse, GearStatusMaintenance, GearStatusRetired:
		return true
	}
	return false
}

// Gear is one physical inventory item.
type Gear struct {
	ID            uuid.UUID           `json:"id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	Name          string              `json:"name"`
	Category      GearCategory        `json:"category"`
	SerialNumber  string              `json:"serial_number,omitempty"`
	Status        GearStatus          `json:"status"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	PurchaseDate  *time.Time          `json:"purchase_date,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// GearKit is a named bundle of gear, linked many-to-many through kit_gear.
type GearKit struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	IsActive    bool        `json:"is_active"`
	GearIDs     []uuid.UUID `json:"gear_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Items []Gear `json:"items,omitempty"`
}

// PackStatus tracks an assigned item from the shelf to the venue and back.
type PackStatus string

const (
	PackStatusNeedsPacking PackStatus = "NEEDS_PACKING"
	PackStatusPacked       PackStatus = "PACKED"
	PackStatusAtEvent      PackStatus = "AT_EVENT"
	PackStatusReturned     PackStatus = "RETURNED"
)

func (s PackStatus) Valid() bool {
	switch s {
	case PackStatusNeedsPacking, PackStatusPacked, PackStatusAtEvent, PackStatusReturned:
		return true
	}
	return false
}

// GearAssignment commits an item to an event, optionally through a kit and for one shift.
type GearAssignment struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	GearID     uuid.UUID  `json:"gear_id"`
	EventID    uuid.UUID  `json:"event_id"`
	KitID      *uuid.UUID `json:"kit_id,omitempty"`
	ShiftID    *uuid.UUID `json:"shift_id,omitempty"`
	PackStatus PackStatus `json:"pack_status"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	GearName    string    `json:"gear_name,omitempty"`
	EventName   string    `json:"event_name,omitempty"`
	LoadInTime  time.Time `json:"load_in_time,omitempty"`
	LoadOutTime time.Time `json:"load_out_time,omitempty"`
}
