package chat

import (
	"encoding/json"
	"testing"
)

func TestParseFrameJSON(t *testing.T) {
	raw := []byte(`{"type":5,"conversationId":"42","content":"hi","atUserIds":["B"]}`)
	f, err := ParseFrameJSON(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Type != FrameSend || f.ConversationID != "42" || f.Content != "hi" {
		t.Fatalf("parsed frame = %+v", f)
	}
	if len(f.AtUserIDs) != 1 || f.AtUserIDs[0] != "B" {
		t.Fatalf("atUserIds = %v", f.AtUserIDs)
	}
}

func TestParseFrameJSONRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("{"), []byte(`{"content":"no type"}`)} {
		if _, err := ParseFrameJSON(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPushEncodeRoundTrip(t *testing.T) {
	p := BuildRead("42", "B", "900001")
	var got Push
	if err := json.Unmarshal(p.Encode(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != PushRead || got.ConversationID != "42" || got.UserID != "B" || got.LastMessageID != "900001" {
		t.Fatalf("round trip = %+v", got)
	}
	if got.Ts == 0 {
		t.Fatalf("push must carry a timestamp")
	}
}
