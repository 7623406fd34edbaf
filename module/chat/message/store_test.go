package message

import (
	"context"
	"errors"
	"testing"

	chatmodel "github.com/FrankZheng1985/sysafari-logistics-sub020/module/chat/model"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/errs"
)

// 校验在碰库之前发生，这些用例不需要 MongoDB

func TestCreateMessageValidation(t *testing.T) {
	s := &Store{}
	cases := []*chatmodel.MessageModel{
		nil,
		{SenderID: "A", Content: "hi"},        // 缺会话
		{ConversationID: "42", Content: "hi"}, // 缺发送者
		{ConversationID: "42", SenderID: "A"}, // 空消息体
	}
	for i, m := range cases {
		if _, err := s.CreateMessage(context.Background(), m); !errors.Is(err, errs.ArgsError) {
			t.Fatalf("case %d: err = %v, want ArgsError", i, err)
		}
	}
}

func TestRecallMessageValidation(t *testing.T) {
	s := &Store{}
	if err := s.RecallMessage(context.Background(), "", "A"); !errors.Is(err, errs.ArgsError) {
		t.Fatalf("err = %v, want ArgsError", err)
	}
	if err := s.RecallMessage(context.Background(), "1", ""); !errors.Is(err, errs.ArgsError) {
		t.Fatalf("err = %v, want ArgsError", err)
	}
}

func TestMarkReadValidation(t *testing.T) {
	s := &Store{}
	if err := s.MarkRead(context.Background(), "", "A", "1"); !errors.Is(err, errs.ArgsError) {
		t.Fatalf("missing conv: err = %v", err)
	}
	// lastMessageId 必须是服务端发的十进制雪花ID
	if err := s.MarkRead(context.Background(), "42", "A", "not-a-seq"); !errors.Is(err, errs.ArgsError) {
		t.Fatalf("bad id: err = %v", err)
	}
}

func TestListParticipantIDsValidation(t *testing.T) {
	s := &Store{}
	if _, err := s.ListParticipantIDs(context.Background(), ""); !errors.Is(err, errs.ArgsError) {
		t.Fatalf("err = %v, want ArgsError", err)
	}
}
