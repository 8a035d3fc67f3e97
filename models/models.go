// models.go
// Defines the canonical data structures shared by the store, gateway and handlers.

package models

import (
	"time"
)

// LoadType defines how a truck is loaded for a trip.
type LoadType string

const (
	LoadFull     LoadType = "FULL"
	LoadCombined LoadType = "COMBINED_2"
)

// LoadStatus defines the lifecycle state of a load. The only legal
// transition is PENDING -> DONE.
type LoadStatus string

const (
	StatusPending LoadStatus = "PENDING"
	StatusDone    LoadStatus = "DONE"
)

// Role defines the access level of a user.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
)

// JustificationKind separates closing-reason entries between the two
// out-of-tolerance metrics.
type JustificationKind string

const (
	JustificationGap   JustificationKind = "GAP"
	JustificationDelay JustificationKind = "DELAY"
)

// Plant is a physical operating unit that owns trucks, drivers and loads.
type Plant struct {
	ID      string `json:"id"`
	PlantID string `json:"plant_id"`
	Name    string `json:"name"`
}

// Truck references its plant softly: a missing plant is rendered as
// "unknown", never dropped.
type Truck struct {
	ID      string `json:"id"`
	TruckID string `json:"truck_id"`
	Plate   string `json:"plate"`
	PlantID string `json:"plant_id"`
}

// Driver follows the same soft-reference pattern as Truck.
type Driver struct {
	ID       string `json:"id"`
	DriverID string `json:"driver_id"`
	Name     string `json:"name"`
	PlantID  string `json:"plant_id"`
}

// User is an application user stored in the remote user list. Operators are
// scoped to one plant; admins are unscoped (empty PlantID).
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	Password    string `json:"-"`
	AccessLevel Role   `json:"access_level"`
	PlantID     string `json:"plant_id,omitempty"`
}

// Justification is a static lookup entry used to populate closing-reason
// pickers.
type Justification struct {
	ID   string            `json:"id"`
	Text string            `json:"text"`
	Kind JustificationKind `json:"kind"`
}

// Load is one truck trip record from dispatch to completion. Closing fields
// are populated only at the PENDING -> DONE transition.
type Load struct {
	LoadID           string     `json:"load_id"`
	PlantID          string     `json:"plant_id"`
	TruckID          string     `json:"truck_id"`
	DriverID         string     `json:"driver_id"`
	Type             LoadType   `json:"type"`
	CreatedAt        time.Time  `json:"created_at"`
	StartAt          time.Time  `json:"start_at"`
	ExpectedKm       float64    `json:"expected_km"`
	ExpectedReturnAt time.Time  `json:"expected_return_at"`
	Status           LoadStatus `json:"status"`
	Route            string     `json:"route,omitempty"`

	ActualKm           *float64   `json:"actual_km,omitempty"`
	ActualArrivalAt    *time.Time `json:"actual_arrival_at,omitempty"`
	GapMinutes         *int       `json:"gap_minutes,omitempty"`
	GapJustification   string     `json:"gap_justification,omitempty"`
	DelayMinutes       *int       `json:"delay_minutes,omitempty"`
	DelayJustification string     `json:"delay_justification,omitempty"`
}

// Closed reports whether the load has completed its lifecycle.
func (l *Load) Closed() bool {
	return l.Status == StatusDone
}

// AuditEvent records one mutating action for the current session. The trail
// is in-memory only; durable history is whatever the remote store retains.
type AuditEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserLogin string    `json:"user_login"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// AuthRequest is the payload for the local login gate.
type AuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AuthResponse returns the session tokens and user details.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Indicators is the aggregate snapshot served to the stats endpoint.
type Indicators struct {
	AvgGapMinutes   int          `json:"avg_gap_minutes"`
	AvgDelayMinutes int          `json:"avg_delay_minutes"`
	CompletedLoads  int          `json:"completed_loads"`
	ActivePlants    int          `json:"active_plants"`
	Plants          []PlantStats `json:"plants"`
}

// PlantStats holds the per-plant gap/delay averages over completed loads.
type PlantStats struct {
	PlantID         string `json:"plant_id"`
	Name            string `json:"name"`
	AvgGapMinutes   int    `json:"avg_gap_minutes"`
	AvgDelayMinutes int    `json:"avg_delay_minutes"`
	CompletedLoads  int    `json:"completed_loads"`
}
