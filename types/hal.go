package types

// ------------------------
// Device status (retained)
// ------------------------

// Health is the state reported for a peripheral owner.
type Health string

const (
	HealthUp       Health = "up"
	HealthDown     Health = "down"
	HealthDegraded Health = "degraded"
)

type DeviceStatus struct {
	Health Health `json:"health"`
	TSms   int64  `json:"ts_ms"`
	Error  string `json:"error,omitempty"` // errcode.Code string
}
