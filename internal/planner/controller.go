// Package planner handles calendar drag-and-drop: operators and kits dropped on a day or a shift,
// and operators dragged between shifts.
package planner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/apperr"
)

// PayloadType is what is being dragged.
type PayloadType string

const (
	PayloadOperator PayloadType = "operator"
	PayloadKit      PayloadType = "kit"
)

func (t PayloadType) Valid() bool { return t == PayloadOperator || t == PayloadKit }

// Payload is the dragged item.
type Payload struct {
	Type PayloadType `json:"type" binding:"required"`
	ID   uuid.UUID   `json:"id" binding:"required"`
	Name string      `json:"name"`
}

// State is the controller's drag state.
type State int

const (
	Idle State = iota
	Dragging
	Dropped
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	}
	return "idle"
}

var (
	ErrNoPayload      = apperr.BadRequest("nothing is being dragged")
	ErrDropInProgress = apperr.Conflict("a drop is still being applied")
)

// Dropper applies a drop for one tenant.
type Dropper interface {
	DropOnDay(ctx context.Context, tenantID uuid.UUID, p Payload, day time.Time) (*Result, error)
	DropOnShift(ctx context.Context, tenantID uuid.UUID, p Payload, shiftID uuid.UUID) (*Result, error)
}

// Controller tracks one drag gesture: Idle, then Dragging after BeginDrag, then Dropped while the
// drop is applied, then Idle again.
type Controller struct {
	mu       sync.Mutex
	state    State
	payload  *Payload
	tenantID uuid.UUID
	dropper  Dropper
}

func NewController(tenantID uuid.UUID, dropper Dropper) *Controller {
	return &Controller{tenantID: tenantID, dropper: dropper}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Payload returns the item being dragged, if any.
func (c *Controller) Payload() (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil {
		return Payload{}, false
	}
	return *c.payload, true
}

// BeginDrag starts dragging p. Starting again while dragging replaces the payload.
func (c *Controller) BeginDrag(p Payload) error {
	if !p.Type.Valid() {
		return apperr.Validation("payload type must be operator or kit")
	}
	if p.ID == uuid.Nil {
		return apperr.Validation("payload id is required")
	}
	p.Name = strings.TrimSpace(p.Name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dropped {
		return ErrDropInProgress
	}
	c.payload = &p
	c.state = Dragging
	return nil
}

// Cancel abandons the drag without applying anything.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		c.payload = nil
		c.state = Idle
	}
}

func (c *Controller) take() (Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.state == Dropped:
		return Payload{}, ErrDropInProgress
	case c.payload == nil:
		return Payload{}, ErrNoPayload
	}
	p := *c.payload
	c.payload = nil
	c.state = Dropped
	return p, nil
}

func (c *Controller) settle() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
}

// DropOnDay applies the payload to the event loading in on day.
func (c *Controller) DropOnDay(ctx context.Context, day time.Time) (*Result, error) {
	p, err := c.take()
	if err != nil {
		return nil, err
	}
	defer c.settle()
	return c.dropper.DropOnDay(ctx, c.tenantID, p, day)
}

// DropOnShift applies the payload to one shift.
func (c *Controller) DropOnShift(ctx context.Context, shiftID uuid.UUID) (*Result, error) {
	p, err := c.take()
	if err != nil {
		return nil, err
	}
	defer c.settle()
	return c.dropper.DropOnShift(ctx, c.tenantID, p, shiftID)
}
