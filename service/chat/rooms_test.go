package chat

import (
	"testing"
	"time"
)

func newTestClient(id string) *Client {
	return NewClient(id, nil, 16)
}

// recvPayload 等一帧，广播走 fanout 工作池是异步的
func recvPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case b := <-c.Send:
		return b
	case <-time.After(time.Second):
		t.Fatalf("no frame delivered to %s", c.ConnID)
		return nil
	}
}

func assertNoPayload(t *testing.T, c *Client) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	select {
	case b := <-c.Send:
		t.Fatalf("unexpected frame delivered to %s: %s", c.ConnID, b)
	default:
	}
}

func TestRoomBroadcast(t *testing.T) {
	r := NewRoomRouter(NewFanout(2, 64))
	a, b := newTestClient("a"), newTestClient("b")
	r.Register(a)
	r.Register(b)
	r.Join("a", "conversation:42")
	r.Join("b", "conversation:42")

	r.BroadcastTo("conversation:42", []byte("hello"))
	if got := string(recvPayload(t, a)); got != "hello" {
		t.Fatalf("a got %q", got)
	}
	if got := string(recvPayload(t, b)); got != "hello" {
		t.Fatalf("b got %q", got)
	}
}

func TestRoomBroadcastToOthers(t *testing.T) {
	r := NewRoomRouter(NewFanout(2, 64))
	a, b := newTestClient("a"), newTestClient("b")
	r.Register(a)
	r.Register(b)
	r.Join("a", "conversation:1")
	r.Join("b", "conversation:1")

	r.BroadcastToOthers("a", "conversation:1", []byte("typing"))
	if got := string(recvPayload(t, b)); got != "typing" {
		t.Fatalf("b got %q", got)
	}
	assertNoPayload(t, a) // 源连接不回显
}

func TestRoomJoinIdempotentLeaveNoop(t *testing.T) {
	r := NewRoomRouter(NewFanout(1, 16))
	a := newTestClient("a")
	r.Register(a)
	r.Join("a", "conversation:7")
	r.Join("a", "conversation:7")

	r.BroadcastTo("conversation:7", []byte("x"))
	recvPayload(t, a)
	assertNoPayload(t, a) // 重复 join 不会收两份

	r.Leave("a", "conversation:7")
	r.Leave("a", "conversation:7") // 不在频道里是无操作
	r.Leave("a", "never-joined")   // 同上
	r.BroadcastTo("conversation:7", []byte("y"))
	assertNoPayload(t, a)
}

func TestRoomDropRemovesAllMemberships(t *testing.T) {
	r := NewRoomRouter(NewFanout(2, 64))
	a, b := newTestClient("a"), newTestClient("b")
	r.Register(a)
	r.Register(b)
	for _, ch := range []string{"conversation:1", "conversation:2", "user:ua"} {
		r.Join("a", ch)
	}
	r.Join("b", "conversation:1")

	if _, ok := r.Drop("a"); !ok {
		t.Fatalf("Drop should find a")
	}
	if _, ok := r.Get("a"); ok {
		t.Fatalf("a should be gone from conn table")
	}

	r.BroadcastTo("conversation:1", []byte("m1"))
	r.BroadcastTo("conversation:2", []byte("m2"))
	r.BroadcastTo("user:ua", []byte("m3"))
	recvPayload(t, b) // b 仍在 conversation:1
	assertNoPayload(t, a)

	if got := r.ConnCount(); got != 1 {
		t.Fatalf("ConnCount = %d, want 1", got)
	}
}

func TestRoomBroadcastAllExcludesOrigin(t *testing.T) {
	r := NewRoomRouter(NewFanout(2, 64))
	a, b, c := newTestClient("a"), newTestClient("b"), newTestClient("c")
	r.Register(a)
	r.Register(b)
	r.Register(c)

	r.BroadcastAll("a", []byte("online"))
	recvPayload(t, b)
	recvPayload(t, c)
	assertNoPayload(t, a)
}

func TestRoomBroadcastExcept(t *testing.T) {
	r := NewRoomRouter(NewFanout(2, 64))
	a, b, c := newTestClient("a"), newTestClient("b"), newTestClient("c")
	r.Register(a)
	r.Register(b)
	r.Register(c)
	for _, id := range []string{"a", "b", "c"} {
		r.Join(id, "conversation:9")
	}

	// 排除一组连接：b、c 都收不到，不止源连接
	r.BroadcastExcept("conversation:9", []string{"b", "c"}, []byte("read"))
	if got := string(recvPayload(t, a)); got != "read" {
		t.Fatalf("a got %q", got)
	}
	assertNoPayload(t, b)
	assertNoPayload(t, c)
}
