package chat

import (
	"encoding/json"
	"time"

	chatmodel "github.com/FrankZheng1985/sysafari-logistics-sub020/module/chat/model"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/errs"
)

// ===== 入站帧 =====

type FrameType int32

const (
	FrameOnline  FrameType = 1 // 上线宣告（带 userId/userName）
	FrameOffline FrameType = 2 // 主动下线
	FrameJoin    FrameType = 3 // 加入会话房间
	FrameLeave   FrameType = 4 // 退出会话房间
	FrameSend    FrameType = 5 // 发消息
	FrameRecall  FrameType = 6 // 撤回
	FrameTyping  FrameType = 7 // 输入状态
	FrameRead    FrameType = 8 // 已读回执
)

// Frame 客户端事件帧，JSON 文本帧
type Frame struct {
	Type FrameType `json:"type"`

	UserID     string `json:"userId,omitempty"`
	UserName   string `json:"userName,omitempty"`
	UserAvatar string `json:"userAvatar,omitempty"`

	ConversationID string `json:"conversationId,omitempty"`

	Content     string               `json:"content,omitempty"`
	ContentType int32                `json:"contentType,omitempty"`
	ReplyTo     string               `json:"replyTo,omitempty"`
	AtUserIDs   []string             `json:"atUserIds,omitempty"`
	File        *chatmodel.FileModel `json:"file,omitempty"`

	MessageID     string `json:"messageId,omitempty"`
	LastMessageID string `json:"lastMessageId,omitempty"`
	Typing        bool   `json:"typing,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	if len(raw) == 0 {
		return nil, errs.ArgsError.WrapMsg("empty frame")
	}
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ArgsError.WrapMsg("unmarshal frame: " + err.Error())
	}
	if f.Type == 0 {
		return nil, errs.ArgsError.WrapMsg("missing frame type")
	}
	return f, nil
}

// ===== 出站帧 =====

type PushType int32

const (
	PushAck         PushType = 100 // 连接确认
	PushOnline      PushType = 101
	PushOffline     PushType = 102
	PushMessage     PushType = 103
	PushConvUpdated PushType = 104 // 会话列表更新（个人频道）
	PushRecalled    PushType = 105
	PushTyping      PushType = 106
	PushRead        PushType = 107
	PushError       PushType = 110 // 只发给肇事连接
)

type Push struct {
	Type PushType `json:"type"`
	Ts   int64    `json:"ts"`

	ConnID string `json:"connId,omitempty"`
	NodeID string `json:"nodeId,omitempty"`

	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`

	ConversationID string                  `json:"conversationId,omitempty"`
	Message        *chatmodel.MessageModel `json:"message,omitempty"`
	MessageID      string                  `json:"messageId,omitempty"`
	LastMessageID  string                  `json:"lastMessageId,omitempty"`
	Typing         bool                    `json:"typing,omitempty"`

	Code int    `json:"code,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

func (p *Push) Encode() []byte {
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return b
}

func now() int64 { return time.Now().UnixMilli() }

// ---- 服务端回执/推送构造 ----

func BuildConnAck(connID, nodeID string) *Push {
	return &Push{Type: PushAck, Ts: now(), ConnID: connID, NodeID: nodeID}
}

func BuildOnline(userID, userName string) *Push {
	return &Push{Type: PushOnline, Ts: now(), UserID: userID, UserName: userName}
}

func BuildOffline(userID, userName string) *Push {
	return &Push{Type: PushOffline, Ts: now(), UserID: userID, UserName: userName}
}

func BuildMessage(m *chatmodel.MessageModel) *Push {
	return &Push{Type: PushMessage, Ts: now(), ConversationID: m.ConversationID, Message: m}
}

// BuildConvUpdated 个人频道的会话列表刷新，带最新一条消息
func BuildConvUpdated(m *chatmodel.MessageModel) *Push {
	return &Push{Type: PushConvUpdated, Ts: now(), ConversationID: m.ConversationID, Message: m}
}

func BuildRecalled(conversationID, msgID string) *Push {
	return &Push{Type: PushRecalled, Ts: now(), ConversationID: conversationID, MessageID: msgID}
}

func BuildTyping(conversationID, userID, userName string, typing bool) *Push {
	return &Push{Type: PushTyping, Ts: now(), ConversationID: conversationID, UserID: userID, UserName: userName, Typing: typing}
}

func BuildRead(conversationID, userID, lastMsgID string) *Push {
	return &Push{Type: PushRead, Ts: now(), ConversationID: conversationID, UserID: userID, LastMessageID: lastMsgID}
}

func BuildError(code int, msg string) *Push {
	return &Push{Type: PushError, Ts: now(), Code: code, Msg: msg}
}
