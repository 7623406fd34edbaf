package chat

import (
	"context"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/logger"
	chatmodel "github.com/FrankZheng1985/sysafari-logistics-sub020/module/chat/model"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/errs"
)

// Dispatcher 入站事件的唯一分发入口：校验、落库、再广播。
// 落库失败的动作绝不广播，错误帧只回给肇事连接（见 sendError）。
type Dispatcher struct {
	presence *PresenceTracker
	rooms    *RoomRouter
	gw       Gateway
	online   OnlineStore // 可为 nil（未配置 Redis 时）
}

func NewDispatcher(presence *PresenceTracker, rooms *RoomRouter, gw Gateway, online OnlineStore) *Dispatcher {
	return &Dispatcher{presence: presence, rooms: rooms, gw: gw, online: online}
}

// Dispatch 处理一帧。所有错误在这里兜底转成 error 帧，不外抛。
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, f *Frame) {
	var err error
	switch f.Type {
	case FrameOnline:
		err = d.handleOnline(ctx, c, f)
	case FrameOffline:
		err = d.handleOffline(ctx, c)
	case FrameJoin:
		err = d.handleJoin(c, f)
	case FrameLeave:
		err = d.handleLeave(c, f)
	case FrameSend:
		err = d.handleSend(ctx, c, f)
	case FrameRecall:
		err = d.handleRecall(ctx, c, f)
	case FrameTyping:
		err = d.handleTyping(c, f)
	case FrameRead:
		err = d.handleRead(ctx, c, f)
	default:
		err = errs.ArgsError.WrapMsg("unknown frame type")
	}
	if err != nil {
		d.sendError(c, err)
	}
}

// Disconnect 连接断开的收尾：在线记账回退、落库下线、离场广播、
// 所有房间成员关系一次摘净。重复断开是无操作。
func (d *Dispatcher) Disconnect(ctx context.Context, c *Client) {
	userID, last := d.presence.Unregister(c.ConnID)
	d.rooms.Drop(c.ConnID)
	c.Close()

	if last {
		_, userName := c.Identity()
		d.persistOffline(ctx, userID)
		d.rooms.BroadcastAll(c.ConnID, BuildOffline(userID, userName).Encode())
	}
	logger.Infof("[chat] disconnect conn=%s user=%s last=%v", c.ConnID, userID, last)
}

// ===== 在线/离线 =====

func (d *Dispatcher) handleOnline(ctx context.Context, c *Client, f *Frame) error {
	if f.UserID == "" {
		return errs.ArgsError.WrapMsg("userId is required")
	}
	_, prevName := c.Identity()
	first, displaced, displacedLast := d.presence.Register(f.UserID, c.ConnID)

	// 连接换了宣告的主人：旧主人的个人频道立即退掉，别再收他的
	// 定向通知；他因此掉到零连接时照常补一次下线收尾
	if displaced != "" {
		d.rooms.Leave(c.ConnID, UserChannel(displaced))
		if displacedLast {
			d.persistOffline(ctx, displaced)
			d.rooms.BroadcastAll(c.ConnID, BuildOffline(displaced, prevName).Encode())
		}
	}

	c.SetIdentity(f.UserID, f.UserName)
	d.rooms.Join(c.ConnID, UserChannel(f.UserID))

	// 快照尽力而为，失败不拦截广播
	if d.online != nil {
		if err := d.online.Online(ctx, f.UserID, f.UserName); err != nil {
			logger.Warnf("[chat] persist online failed user=%s err=%v", f.UserID, err)
		}
	}

	if first {
		d.rooms.BroadcastAll(c.ConnID, BuildOnline(f.UserID, f.UserName).Encode())
	}
	return nil
}

func (d *Dispatcher) handleOffline(ctx context.Context, c *Client) error {
	userID, last := d.presence.Unregister(c.ConnID)
	if userID == "" {
		return nil // 没宣告过，静默
	}
	if last {
		_, userName := c.Identity()
		d.persistOffline(ctx, userID)
		d.rooms.BroadcastAll(c.ConnID, BuildOffline(userID, userName).Encode())
	}
	return nil
}

func (d *Dispatcher) persistOffline(ctx context.Context, userID string) {
	if d.online == nil || userID == "" {
		return
	}
	if err := d.online.Offline(ctx, userID); err != nil {
		logger.Warnf("[chat] persist offline failed user=%s err=%v", userID, err)
	}
}

// ===== 房间 =====

func (d *Dispatcher) handleJoin(c *Client, f *Frame) error {
	if f.ConversationID == "" {
		return errs.ArgsError.WrapMsg("conversationId is required")
	}
	d.rooms.Join(c.ConnID, ConversationChannel(f.ConversationID))
	return nil
}

func (d *Dispatcher) handleLeave(c *Client, f *Frame) error {
	if f.ConversationID == "" {
		return errs.ArgsError.WrapMsg("conversationId is required")
	}
	d.rooms.Leave(c.ConnID, ConversationChannel(f.ConversationID))
	return nil
}

// ===== 消息 =====

func (d *Dispatcher) handleSend(ctx context.Context, c *Client, f *Frame) error {
	userID, userName := c.Identity()
	if userID == "" {
		return errs.ArgsError.WrapMsg("presence not announced")
	}
	if f.ConversationID == "" {
		return errs.ArgsError.WrapMsg("conversationId is required")
	}
	if f.Content == "" && f.File == nil {
		return errs.ArgsError.WrapMsg("empty message body")
	}

	msg, err := d.gw.CreateMessage(ctx, &chatmodel.MessageModel{
		ConversationID: f.ConversationID,
		SenderID:       userID,
		SenderName:     userName,
		SenderAvatar:   f.UserAvatar,
		ContentType:    f.ContentType,
		Content:        f.Content,
		ReplyTo:        f.ReplyTo,
		AtUserIDs:      f.AtUserIDs,
		File:           f.File,
	})
	if err != nil {
		return err // 没落库就不广播
	}

	d.rooms.BroadcastTo(ConversationChannel(msg.ConversationID), BuildMessage(msg).Encode())

	// 其余参与者的个人频道推会话列表更新；消息本体已送达，这一步
	// 查成员失败只降级为少了列表刷新，不算动作失败
	participants, err := d.gw.ListParticipantIDs(ctx, msg.ConversationID)
	if err != nil {
		logger.Warnf("[chat] list participants failed conv=%s err=%v", msg.ConversationID, err)
		return nil
	}
	updated := BuildConvUpdated(msg).Encode()
	for _, p := range participants {
		if p == msg.SenderID {
			continue
		}
		d.rooms.BroadcastTo(UserChannel(p), updated)
	}
	return nil
}

func (d *Dispatcher) handleRecall(ctx context.Context, c *Client, f *Frame) error {
	userID, _ := c.Identity()
	if userID == "" {
		return errs.ArgsError.WrapMsg("presence not announced")
	}
	if f.MessageID == "" || f.ConversationID == "" {
		return errs.ArgsError.WrapMsg("messageId and conversationId are required")
	}
	if err := d.gw.RecallMessage(ctx, f.MessageID, userID); err != nil {
		return err
	}
	d.rooms.BroadcastTo(ConversationChannel(f.ConversationID), BuildRecalled(f.ConversationID, f.MessageID).Encode())
	return nil
}

// ===== 输入状态 / 已读 =====

// 纯广播，不落库
func (d *Dispatcher) handleTyping(c *Client, f *Frame) error {
	userID, userName := c.Identity()
	if userID == "" {
		return errs.ArgsError.WrapMsg("presence not announced")
	}
	if f.ConversationID == "" {
		return errs.ArgsError.WrapMsg("conversationId is required")
	}
	d.rooms.BroadcastToOthers(c.ConnID, ConversationChannel(f.ConversationID),
		BuildTyping(f.ConversationID, userID, userName, f.Typing).Encode())
	return nil
}

func (d *Dispatcher) handleRead(ctx context.Context, c *Client, f *Frame) error {
	userID, _ := c.Identity()
	if userID == "" {
		return errs.ArgsError.WrapMsg("presence not announced")
	}
	if f.ConversationID == "" || f.LastMessageID == "" {
		return errs.ArgsError.WrapMsg("conversationId and lastMessageId are required")
	}
	if err := d.gw.MarkRead(ctx, f.ConversationID, userID, f.LastMessageID); err != nil {
		return err
	}
	// 回执不回给读者的任何终端，多端时另一端也不收自己的水位
	d.rooms.BroadcastExcept(ConversationChannel(f.ConversationID), d.presence.ConnsOf(userID),
		BuildRead(f.ConversationID, userID, f.LastMessageID).Encode())
	return nil
}

// sendError 错误只回源连接，其他人看不到任何状态变化
func (d *Dispatcher) sendError(c *Client, err error) {
	code, msg := errs.CodeOf(err)
	logger.Infof("[chat] action rejected conn=%s code=%d err=%v", c.ConnID, code, err)
	c.Push(BuildError(code, msg).Encode())
}
