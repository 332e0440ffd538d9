package pwm_out

import (
	"errors"
	"testing"

	"eventnode-go/errcode"
	"eventnode-go/services/hal/sim"
)

func TestDevice_InitAndClamp(t *testing.T) {
	hw := sim.NewPWM(0, 2)
	d := New("fan", Params{Channel: 0, Pin: 2, FreqHz: 5000, ResolutionBits: 8}, hw)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if d.MaxDuty() != 255 || hw.Duty() != 0 {
		t.Fatalf("max=%d duty=%d", d.MaxDuty(), hw.Duty())
	}
	if err := d.SetDuty(1000); err != nil {
		t.Fatal(err)
	}
	if hw.Duty() != 255 || d.Duty() != 255 {
		t.Fatalf("duty not clamped: hw=%d dev=%d", hw.Duty(), d.Duty())
	}
}

func TestDevice_ConfigureFailure(t *testing.T) {
	hw := sim.NewPWM(0, 2)
	hw.FailConfigure = true
	d := New("fan", Params{FreqHz: 5000, ResolutionBits: 8}, hw)
	if err := d.Init(); errcode.Of(err) != errcode.ConfigFailed {
		t.Fatalf("Init err=%v", err)
	}
	if err := d.SetDuty(10); !errors.Is(err, errcode.NotConfigured) {
		t.Fatalf("SetDuty err=%v", err)
	}
	if len(hw.History()) != 0 {
		t.Fatal("duty written after failed configuration")
	}
}
