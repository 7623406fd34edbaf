package chat

import (
	"context"

	chatmodel "github.com/FrankZheng1985/sysafari-logistics-sub020/module/chat/model"
)

// Gateway 消息存储网关。实时层只依赖这组签名，落库细节在 module/chat/message。
type Gateway interface {
	CreateMessage(ctx context.Context, m *chatmodel.MessageModel) (*chatmodel.MessageModel, error)
	RecallMessage(ctx context.Context, msgID, userID string) error
	MarkRead(ctx context.Context, conversationID, userID, lastMsgID string) error
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
}

// OnlineStore 在线状态的持久化快照（Redis）。写失败不阻断内存记账。
type OnlineStore interface {
	Online(ctx context.Context, userID, userName string) error
	Offline(ctx context.Context, userID string) error
	Lookup(ctx context.Context, userID string) (nodeID string, online bool, err error)
}
