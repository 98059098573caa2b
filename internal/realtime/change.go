package realtime

import (
	"encoding/json"
)

// ChangeType is the kind of row mutation carried by a Change.
type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Tables that clients may subscribe to.
const (
	TableOrganization      = "organization"
	TableClients           = "clients"
	TableProjects          = "projects"
	TableProjectActivities = "project_activities"
	TableEmployees         = "employees"
	TableRoles             = "roles"
	TableSkills            = "skills"
	TableTeams             = "teams"
	TableActivities        = "activities"
	TableTimeEntries       = "time_entries"
)

var knownTables = map[string]struct{}{
	TableOrganization:      {},
	TableClients:           {},
	TableProjects:          {},
	TableProjectActivities: {},
	TableEmployees:         {},
	TableRoles:             {},
	TableSkills:            {},
	TableTeams:             {},
	TableActivities:        {},
	TableTimeEntries:       {},
}

// KnownTable reports whether table can be subscribed to.
func KnownTable(table string) bool {
	_, ok := knownTables[table]
	return ok
}

// Change is one row-level event on a table. Record holds the new row for INSERT and UPDATE
// and is omitted for DELETE. Key is the row's primary key rendered as a string.
type Change struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	Key    string          `json:"key"`
	Record json.RawMessage `json:"record,omitempty"`
}

// NewChange builds a Change, encoding record as JSON. A nil record leaves Record empty.
func NewChange(table string, typ ChangeType, key string, record interface{}) Change {
	ch := Change{Table: table, Type: typ, Key: key}
	if record != nil {
		if b, err := json.Marshal(record); err == nil {
			ch.Record = b
		}
	}
	return ch
}

// Publisher emits change events to live subscribers.
type Publisher interface {
	Publish(ch Change)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ch Change)

// Publish calls f(ch).
func (f PublisherFunc) Publish(ch Change) { f(ch) }

// Discard is a Publisher that drops every event.
var Discard Publisher = PublisherFunc(func(Change) {})
