package types

// Kind names the device class in hal/<kind>/<name>/... topics.
type Kind string

const (
	KindLED Kind = "led"
	KindPWM Kind = "pwm"
)
