package projects

import (
	"fmt"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
)

// OverAllocationError rejects a resource whose hours would push the activity past its budget.
type OverAllocationError struct {
	Requested int
	Existing  int
	Total     int
	Activity  int
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("Cannot add resource. Total resource hours (%d) would exceed activity hours (%d). "+
		"Already allocated hours are (%d) and available hours to be allocated are (%d).",
		e.Total, e.Activity, e.Existing, e.Available())
}

// Available is the number of hours still unallocated before the rejected add.
func (e *OverAllocationError) Available() int {
	return e.Activity - e.Existing
}

// AllocatedHours sums resource hours, skipping the entry at skip (-1 skips nothing).
func AllocatedHours(resources []models.ResourceAllocation, skip int) int {
	total := 0
	for i, r := range resources {
		if i == skip {
			continue
		}
		total += r.HoursAllotted
	}
	return total
}

// CheckResourceAdd reports whether a resource of hours can be added to an activity declared
// at activityHours. editingIndex names the resource being replaced, or -1 for a new one.
// Filling the activity exactly is allowed.
func CheckResourceAdd(activityHours int, resources []models.ResourceAllocation, editingIndex, hours int) error {
	existing := AllocatedHours(resources, editingIndex)
	total := existing + hours
	if total > activityHours {
		return &OverAllocationError{Requested: hours, Existing: existing, Total: total, Activity: activityHours}
	}
	return nil
}

// ValidateResource checks a single resource row before it is counted.
func ValidateResource(r models.ResourceAllocation) error {
	if r.EmployeeID == "" || r.SkillName == "" || r.HoursAllotted <= 0 {
		return crud.Invalid("Please fill in all resource fields")
	}
	return nil
}

// ValidateActivityCommit is the save-time rule: the activity must name a catalog activity with
// positive hours, and its resources must add up to exactly those hours.
func ValidateActivityCommit(a models.ProjectActivity) error {
	if a.ActivityID <= 0 || a.HoursAllotted <= 0 {
		return crud.Invalid("Please select an activity and enter valid hours")
	}
	for _, r := range a.Resources {
		if err := ValidateResource(r); err != nil {
			return err
		}
	}
	if total := AllocatedHours(a.Resources, -1); total != a.HoursAllotted {
		return crud.Invalid(fmt.Sprintf("Total resource hours (%d) must equal activity hours (%d)", total, a.HoursAllotted))
	}
	return nil
}
