package gear

import (
	"github.com/google/uuid"

	"github.com/commandcentered/backend/internal/models"
)

// ItemAvailability is the booking state of one item in a window.
type ItemAvailability struct {
	GearID    uuid.UUID               `json:"gear_id"`
	Available bool                    `json:"available"`
	Conflicts []models.GearAssignment `json:"conflicts"`
}

// Availability groups overlapping assignments by item. An item with none is available.
// Assignments to excludeEventID are ignored so an event's own gear does not conflict with itself.
func Availability(gearIDs []uuid.UUID, booked []models.GearAssignment, excludeEventID *uuid.UUID) []ItemAvailability {
	byGear := make(map[uuid.UUID][]models.GearAssignment, len(gearIDs))
	for _, a := range booked {
		if excludeEventID != nil && a.EventID == *excludeEventID {
			continue
		}
		byGear[a.GearID] = append(byGear[a.GearID], a)
	}
	out := make([]ItemAvailability, 0, len(gearIDs))
	seen := make(map[uuid.UUID]bool, len(gearIDs))
	for _, id := range gearIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		conflicts := byGear[id]
		if conflicts == nil {
			conflicts = []models.GearAssignment{}
		}
		out = append(out, ItemAvailability{GearID: id, Available: len(conflicts) == 0, Conflicts: conflicts})
	}
	return out
}
