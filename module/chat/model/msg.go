package model

// ===== 常量 =====

const (
	MsgTableName      = "msg"                 // 消息集合
	MemberTableName   = "conversation_member" // 会话成员集合
	ReadStatTableName = "msg_read"            // 已读水位集合
)

// 消息内容类型
const (
	ContentText  = 1 // 文本
	ContentImage = 2 // 图片
	ContentFile  = 3 // 文件/附件（提单扫描件、报关单等）
	ContentAudio = 4 // 语音
)

// 消息状态
const (
	StatusNormal   = 0
	StatusRecalled = 1
)

// ===== 存储结构 =====

// FileModel 附件元信息快照（文件本体在对象存储，这里只存指针）
type FileModel struct {
	Name string `bson:"name" json:"name"`
	URL  string `bson:"url" json:"url"`
	Size int64  `bson:"size" json:"size"`
	Mime string `bson:"mime,omitempty" json:"mime,omitempty"`
}

// RecallModel 撤回操作的元信息
type RecallModel struct {
	UserID   string `bson:"user_id" json:"userId"`
	Nickname string `bson:"nickname" json:"nickname"`
	Time     int64  `bson:"time" json:"time"` // Unix ms
}

// MessageModel 一条会话消息。
// MsgID 是服务端分配的雪花ID（十进制串），Seq 是同一个ID的 int64 形式，
// 时间戳在高位，所以 Seq 可直接当会话内的顺序号用。
type MessageModel struct {
	MsgID          string `bson:"msg_id" json:"id"`
	ConversationID string `bson:"conversation_id" json:"conversationId"`

	SenderID     string `bson:"sender_id" json:"senderId"`
	SenderName   string `bson:"sender_name" json:"senderName"`     // 昵称快照
	SenderAvatar string `bson:"sender_avatar" json:"senderAvatar"` // 头像快照

	ContentType int32  `bson:"content_type" json:"contentType"`
	Content     string `bson:"content" json:"content"`

	ReplyTo   string     `bson:"reply_to,omitempty" json:"replyTo,omitempty"`     // 被引用消息ID
	AtUserIDs []string   `bson:"at_user_ids,omitempty" json:"atUserIds,omitempty"`
	File      *FileModel `bson:"file,omitempty" json:"file,omitempty"`

	Seq        int64 `bson:"seq" json:"seq"`
	CreateTime int64 `bson:"create_time" json:"createTime"` // Unix ms

	Status int32        `bson:"status" json:"-"`
	Recall *RecallModel `bson:"recall,omitempty" json:"recall,omitempty"`
}

// Recalled 对外只暴露布尔位
func (m *MessageModel) Recalled() bool { return m.Status == StatusRecalled }
