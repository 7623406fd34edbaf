package chat

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newPollTestServer(t *testing.T, conf ServerConf) (*Server, *gin.Engine, *fakeGateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := &fakeGateway{participants: map[string][]string{}}
	s := NewServer(conf, gw, nil)
	t.Cleanup(s.Close)

	r := gin.New()
	r.POST("/poll", s.HandlePollOpen)
	r.POST("/poll/:connId", s.HandlePollSend)
	r.GET("/poll/:connId", s.HandlePollRecv)
	return s, r, gw
}

func pollOpen(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/poll", nil))
	if w.Code != 200 {
		t.Fatalf("open poll conn: status %d", w.Code)
	}
	var body struct {
		ConnID string `json:"connId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.ConnID == "" {
		t.Fatalf("open poll conn: bad body %s (%v)", w.Body.Bytes(), err)
	}
	return body.ConnID
}

func pollSend(t *testing.T, r *gin.Engine, connID, frame string) int {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/poll/"+connID, strings.NewReader(frame))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w.Code
}

func pollRecv(t *testing.T, r *gin.Engine, connID, wait string) (int, []*Push) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/poll/"+connID+"?wait="+wait, nil))
	if w.Code != 200 {
		return w.Code, nil
	}
	var body struct {
		Frames []json.RawMessage `json:"frames"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("recv: bad body %s (%v)", w.Body.Bytes(), err)
	}
	out := make([]*Push, 0, len(body.Frames))
	for _, raw := range body.Frames {
		out = append(out, decodePush(t, raw))
	}
	return w.Code, out
}

// 长轮询连接走和 WebSocket 完全相同的在线记账、房间和广播
func TestPollTransportSharesRoomsAndBroadcasts(t *testing.T) {
	s, router, gw := newPollTestServer(t, ServerConf{
		NodeID: "gw-test", SendQueueSize: 16,
		PollTTL: time.Minute, PollSweep: time.Minute,
	})
	gw.participants["42"] = []string{"A", "P"}

	connID := pollOpen(t, router)

	// 首次拉取先拿连接确认
	code, frames := pollRecv(t, router, connID, "200ms")
	if code != 200 || len(frames) == 0 || frames[0].Type != PushAck || frames[0].ConnID != connID {
		t.Fatalf("first recv = %d %+v, want conn ack", code, frames)
	}

	if code := pollSend(t, router, connID, `{"type":1,"userId":"P","userName":"Poller"}`); code != 204 {
		t.Fatalf("online announce: status %d", code)
	}
	if code := pollSend(t, router, connID, `{"type":3,"conversationId":"42"}`); code != 204 {
		t.Fatalf("join: status %d", code)
	}
	if !s.Presence().IsOnline("P") {
		t.Fatalf("poll conn must count into presence")
	}

	// 进程内另一端发消息，长轮询端拉到房间广播
	a := newTestClient("ws1")
	s.Rooms().Register(a)
	s.Disp().Dispatch(context.Background(), a, &Frame{Type: FrameOnline, UserID: "A"})
	s.Disp().Dispatch(context.Background(), a, &Frame{Type: FrameJoin, ConversationID: "42"})
	s.Disp().Dispatch(context.Background(), a, &Frame{Type: FrameSend, ConversationID: "42", Content: "hi"})

	// 上线通告和消息可能分几次拉到
	var gotMsg bool
	deadline := time.Now().Add(2 * time.Second)
	for !gotMsg && time.Now().Before(deadline) {
		_, frames := pollRecv(t, router, connID, "200ms")
		for _, p := range frames {
			if p.Type == PushMessage && p.Message != nil && p.Message.Content == "hi" {
				gotMsg = true
			}
		}
	}
	if !gotMsg {
		t.Fatalf("poll conn never received the room message")
	}

	// 坏帧和未知连接
	if code := pollSend(t, router, connID, `not-json`); code != 400 {
		t.Fatalf("bad frame: status %d, want 400", code)
	}
	if code, _ := pollRecv(t, router, "ghost", "50ms"); code != 410 {
		t.Fatalf("unknown conn: status %d, want 410", code)
	}
}

// 不再轮询的连接由 sweeper 按断开收尾：记账回退、成员关系摘净
func TestPollSweeperExpiresIdleConn(t *testing.T) {
	s, router, _ := newPollTestServer(t, ServerConf{
		SendQueueSize: 16,
		PollTTL:       30 * time.Millisecond,
		PollSweep:     10 * time.Millisecond,
	})

	connID := pollOpen(t, router)
	if code := pollSend(t, router, connID, `{"type":1,"userId":"P"}`); code != 204 {
		t.Fatalf("online announce: status %d", code)
	}
	if !s.Presence().IsOnline("P") {
		t.Fatalf("P should be online before expiry")
	}

	time.Sleep(300 * time.Millisecond)

	if code, _ := pollRecv(t, router, connID, "10ms"); code != 410 {
		t.Fatalf("expired conn recv: status %d, want 410", code)
	}
	if s.Presence().IsOnline("P") {
		t.Fatalf("expired poll conn must be treated as disconnected")
	}
	if got := s.Rooms().ConnCount(); got != 0 {
		t.Fatalf("ConnCount = %d, want 0 after sweep", got)
	}
}
