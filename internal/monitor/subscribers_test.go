package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeConn struct {
	payloads [][]byte
	fail     bool
}

func (f *fakeConn) Send(_ context.Context, payload []byte) error {
	if f.fail {
		return errors.New("send failed")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestBroadcastChannelIsolation(t *testing.T) {
	subs := NewSubscribers(time.Second, zap.NewNop())
	a := &fakeConn{}
	b := &fakeConn{}
	subs.Register("user-a", a)
	subs.Register("user-b", b)

	subs.Broadcast(context.Background(), "user-a", map[string]string{"type": "data_update"})

	if len(a.payloads) != 1 {
		t.Fatalf("subscriber a payloads = %d, want 1", len(a.payloads))
	}
	if len(b.payloads) != 0 {
		t.Fatalf("subscriber b must not receive another channel's broadcast")
	}

	var msg map[string]string
	if err := json.Unmarshal(a.payloads[0], &msg); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if msg["type"] != "data_update" {
		t.Fatalf("payload type = %q", msg["type"])
	}
}

func TestBroadcastDropsDeadSubscribers(t *testing.T) {
	subs := NewSubscribers(time.Second, zap.NewNop())
	ok := &fakeConn{}
	dead := &fakeConn{fail: true}
	subs.Register("u", ok)
	subs.Register("u", dead)

	subs.Broadcast(context.Background(), "u", "ping")
	if got := subs.Count("u"); got != 1 {
		t.Fatalf("subscriber count = %d, want 1 after dropping the dead conn", got)
	}

	subs.Broadcast(context.Background(), "u", "ping")
	if len(ok.payloads) != 2 {
		t.Fatalf("live subscriber payloads = %d, want 2", len(ok.payloads))
	}
}

func TestUnregisterRemovesChannelWhenEmpty(t *testing.T) {
	subs := NewSubscribers(time.Second, zap.NewNop())
	c := &fakeConn{}
	subs.Register("u", c)
	subs.Unregister("u", c)
	if got := subs.Count("u"); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}
	subs.Broadcast(context.Background(), "u", "noop")
}

func TestPushSingleConn(t *testing.T) {
	subs := NewSubscribers(time.Second, zap.NewNop())
	c := &fakeConn{}
	if err := subs.Push(context.Background(), c, map[string]string{"type": "init_data"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(c.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(c.payloads))
	}

	if err := subs.Push(context.Background(), &fakeConn{fail: true}, "x"); err == nil {
		t.Fatalf("push to a failing conn must surface the error")
	}
}
