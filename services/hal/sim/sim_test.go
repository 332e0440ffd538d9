package sim

import (
	"errors"
	"testing"

	"eventnode-go/services/hal/halcore"
)

func TestPin_DriveRaisesMatchingEdgesOnly(t *testing.T) {
	p := NewPin(9)
	fired := 0
	if err := p.SetIRQ(halcore.EdgeFalling, func() { fired++ }); err != nil {
		t.Fatal(err)
	}
	p.Drive(true) // rising: ignored
	p.Drive(false)
	p.Drive(false) // no transition
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
	_ = p.ClearIRQ()
	p.Pulse()
	if fired != 1 {
		t.Fatalf("handler ran after ClearIRQ")
	}
}

func TestPin_FailConfigure(t *testing.T) {
	p := NewPin(1)
	p.FailConfigure = true
	if err := p.ConfigureOutput(false); !errors.Is(err, ErrInjected) {
		t.Fatalf("err=%v", err)
	}
	if p.IsOutput() {
		t.Fatal("pin reported as output after failure")
	}
}

func TestPWM_RequiresConfigure(t *testing.T) {
	p := NewPWM(0, 2)
	if err := p.SetDuty(1); err == nil {
		t.Fatal("expected error before Configure")
	}
	if err := p.Configure(5000, 13); err != nil {
		t.Fatal(err)
	}
	if p.MaxDuty() != 8191 {
		t.Fatalf("MaxDuty=%d", p.MaxDuty())
	}
	_ = p.SetDuty(4096)
	if h := p.History(); len(h) != 1 || h[0].Duty != 4096 {
		t.Fatalf("history=%v", h)
	}
}

func TestBoard_UnknownPin(t *testing.T) {
	b := NewBoard(21)
	if _, err := b.Pin(22); !errors.Is(err, halcore.ErrUnknownPin) {
		t.Fatalf("err=%v", err)
	}
	p1, _ := b.SimPin(3)
	p2, _ := b.SimPin(3)
	if p1 != p2 {
		t.Fatal("expected same pin handle")
	}
}
