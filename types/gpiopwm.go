package types

// ------------------------
// LED (boolean output)
// ------------------------

type LEDInfo struct {
	Pin       int  `json:"pin"`
	ActiveLow bool `json:"active_low"`
}

type LEDValue struct {
	On   bool  `json:"on"`
	TSms int64 `json:"ts_ms"`
}

// ------------------------
// PWM
// ------------------------

type PWMInfo struct {
	Channel        int    `json:"channel"`
	Pin            int    `json:"pin"`
	FreqHz         uint32 `json:"freq_hz"`
	ResolutionBits uint8  `json:"resolution_bits"`
}

type PWMValue struct {
	Duty uint32 `json:"duty"` // 0..MaxDuty
	TSms int64  `json:"ts_ms"`
}
