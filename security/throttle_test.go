package security

import "testing"

func TestThrottle_Disabled(t *testing.T) {
	th := NewThrottle(0, 0, nil)

	if th.Enabled() {
		t.Error("zero rate should disable the throttle")
	}
	for i := 0; i < 100; i++ {
		if !th.Allow() {
			t.Fatal("disabled throttle must always admit")
		}
	}
}

func TestThrottle_BurstExhaustion(t *testing.T) {
	th := NewThrottle(1, 3, nil)

	if !th.Enabled() {
		t.Fatal("throttle should be enabled")
	}

	admitted := 0
	for i := 0; i < 10; i++ {
		if th.Allow() {
			admitted++
		}
	}
	if admitted != 3 {
		t.Errorf("admitted = %d immediate requests, want burst of 3", admitted)
	}
}

func TestThrottle_DefaultBurst(t *testing.T) {
	// Burst defaults to the rate when unset
	th := NewThrottle(5, 0, nil)

	admitted := 0
	for i := 0; i < 10; i++ {
		if th.Allow() {
			admitted++
		}
	}
	if admitted != 5 {
		t.Errorf("admitted = %d, want 5", admitted)
	}
}
