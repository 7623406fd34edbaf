package chat

import (
	"testing"
	"time"
)

func TestFanoutDelivers(t *testing.T) {
	f := NewFanout(2, 16)
	defer f.Close()

	a := newTestClient("a")
	f.Broadcast([]*Client{a}, []byte("x"))
	if got := string(recvPayload(t, a)); got != "x" {
		t.Fatalf("a got %q", got)
	}
}

func TestFanoutCloseStopsAcceptingJobs(t *testing.T) {
	f := NewFanout(1, 2)
	f.Close()
	f.Close() // 幂等

	// 关停后广播是丢弃，不能卡死调用方
	a := newTestClient("a")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 32; i++ {
			f.Broadcast([]*Client{a}, []byte("late"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcast after close must not block")
	}
}
