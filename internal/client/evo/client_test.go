package evo

import (
	"testing"
	"time"
)

func TestReconnectPolicyBackoff(t *testing.T) {
	p := reconnectPolicy{max: 3, window: time.Minute}
	now := time.Unix(1000, 0)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		delay, ok := p.Next(now)
		if !ok {
			t.Fatalf("attempt %d denied", i+1)
		}
		if delay != w {
			t.Fatalf("attempt %d delay = %v, want %v", i+1, delay, w)
		}
		now = now.Add(5 * time.Second)
	}

	if _, ok := p.Next(now); ok {
		t.Fatalf("fourth attempt inside the window must be denied")
	}
}

func TestReconnectPolicyWindowReset(t *testing.T) {
	p := reconnectPolicy{max: 3, window: time.Minute}
	now := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		if _, ok := p.Next(now); !ok {
			t.Fatalf("attempt %d denied", i+1)
		}
	}

	if _, ok := p.Next(now.Add(30 * time.Second)); ok {
		t.Fatalf("cap must hold while the window is open")
	}

	delay, ok := p.Next(now.Add(61 * time.Second))
	if !ok {
		t.Fatalf("attempt after the window elapses must be allowed")
	}
	if delay != time.Second {
		t.Fatalf("backoff must restart at 1s, got %v", delay)
	}
}

func TestReconnectPolicyReset(t *testing.T) {
	p := reconnectPolicy{max: 3, window: time.Minute}
	now := time.Unix(1000, 0)
	p.Next(now)
	p.Next(now)
	p.Reset()

	delay, ok := p.Next(now)
	if !ok || delay != time.Second {
		t.Fatalf("after reset delay = %v, ok = %v, want 1s allowed", delay, ok)
	}
}

func TestDefaultOptions(t *testing.T) {
	c := NewClient(Options{URL: "wss://example"})
	if c.opts.LivenessTimeout != 30*time.Second {
		t.Fatalf("liveness timeout = %v", c.opts.LivenessTimeout)
	}
	if c.opts.ProbeTimeout != 10*time.Second {
		t.Fatalf("probe timeout = %v", c.opts.ProbeTimeout)
	}
	if c.opts.MaxReconnects != 3 || c.opts.ReconnectWindow != time.Minute {
		t.Fatalf("reconnect defaults wrong: %d %v", c.opts.MaxReconnects, c.opts.ReconnectWindow)
	}
	if c.policy.max != 3 || c.policy.window != time.Minute {
		t.Fatalf("policy not seeded from options")
	}
}
