package model

// MemberModel 会话成员关系（谁在哪个会话里）。
// 成员的增删由业务侧的会话管理接口维护，网关只读。
type MemberModel struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	UserID         string `bson:"user_id" json:"userId"`
	JoinTime       int64  `bson:"join_time" json:"joinTime"`
}

// ReadStatModel 用户在某会话的已读水位（watermark）。
// 只存"读到哪"，未读数 = 水位之后的消息数，不逐条记已读。
type ReadStatModel struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	UserID         string `bson:"user_id" json:"userId"`
	LastMsgID      string `bson:"last_msg_id" json:"lastMessageId"`
	LastReadSeq    int64  `bson:"last_read_seq" json:"lastReadSeq"` // 只进不退
	UpdateTime     int64  `bson:"update_time" json:"updateTime"`
}
