package message

import (
	"context"
	"strconv"
	"time"

	chatmodel "github.com/FrankZheng1985/sysafari-logistics-sub020/module/chat/model"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/errs"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 消息存储网关的 MongoDB 实现。
// 网关只通过这几个入口碰消息数据，房间/在线状态一概不落这里。
type Store struct {
	MsgColl    *mongo.Collection // msg
	MemberColl *mongo.Collection // conversation_member
	ReadColl   *mongo.Collection // msg_read
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		MsgColl:    db.Collection(chatmodel.MsgTableName),
		MemberColl: db.Collection(chatmodel.MemberTableName),
		ReadColl:   db.Collection(chatmodel.ReadStatTableName),
	}
}

// CreateMessage 落一条新消息，由服务端分配 msg_id/seq/create_time。
// 入参里的这些字段即便带了也会被覆盖。
func (s *Store) CreateMessage(ctx context.Context, m *chatmodel.MessageModel) (*chatmodel.MessageModel, error) {
	if m == nil || m.ConversationID == "" || m.SenderID == "" {
		return nil, errs.ArgsError.WrapMsg("conversation_id and sender_id are required")
	}
	if m.Content == "" && m.File == nil {
		return nil, errs.ArgsError.WrapMsg("empty message body")
	}
	if m.ContentType == 0 {
		m.ContentType = chatmodel.ContentText
	}

	seq := ids.Generate()
	m.Seq = seq
	m.MsgID = strconv.FormatInt(seq, 10)
	m.CreateTime = time.Now().UnixMilli()
	m.Status = chatmodel.StatusNormal
	m.Recall = nil

	if _, err := s.MsgColl.InsertOne(ctx, m); err != nil {
		return nil, errs.StorageError.WrapMsg(err.Error())
	}
	return m, nil
}

// RecallMessage 撤回：只有发送者本人可以撤，消息记录保留，状态翻成已撤回。
func (s *Store) RecallMessage(ctx context.Context, msgID, userID string) error {
	if msgID == "" || userID == "" {
		return errs.ArgsError.WrapMsg("msg_id and user_id are required")
	}

	var m chatmodel.MessageModel
	err := s.MsgColl.FindOne(ctx, bson.M{"msg_id": msgID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return errs.RecordNotFoundError.WrapMsg("msg_id=" + msgID)
	}
	if err != nil {
		return errs.StorageError.WrapMsg(err.Error())
	}
	if m.SenderID != userID {
		return errs.PermissionError.WrapMsg("not the sender of " + msgID)
	}

	_, err = s.MsgColl.UpdateOne(ctx,
		bson.M{"msg_id": msgID},
		bson.M{"$set": bson.M{
			"status": chatmodel.StatusRecalled,
			"recall": &chatmodel.RecallModel{
				UserID:   userID,
				Nickname: m.SenderName,
				Time:     time.Now().UnixMilli(),
			},
		}})
	if err != nil {
		return errs.StorageError.WrapMsg(err.Error())
	}
	return nil
}

// MarkRead 推进已读水位。水位只进不退：晚到的旧回执在存储侧是无操作，
// 所以乱序投递下按 last-write-wins 对外，落库侧天然幂等。
func (s *Store) MarkRead(ctx context.Context, conversationID, userID, lastMsgID string) error {
	if conversationID == "" || userID == "" {
		return errs.ArgsError.WrapMsg("conversation_id and user_id are required")
	}
	seq, err := strconv.ParseInt(lastMsgID, 10, 64)
	if err != nil {
		return errs.ArgsError.WrapMsg("bad last message id: " + lastMsgID)
	}

	// pipeline update：$max 推水位，last_msg_id 只在水位真的前进时替换
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"conversation_id": conversationID,
			"user_id":         userID,
			"last_read_seq":   bson.M{"$max": bson.A{bson.M{"$ifNull": bson.A{"$last_read_seq", 0}}, seq}},
			"last_msg_id": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{seq, bson.M{"$ifNull": bson.A{"$last_read_seq", 0}}}},
				lastMsgID,
				"$last_msg_id",
			}},
			"update_time": time.Now().UnixMilli(),
		}}},
	}
	_, err = s.ReadColl.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		pipeline,
		options.Update().SetUpsert(true))
	if err != nil {
		return errs.StorageError.WrapMsg(err.Error())
	}
	return nil
}

// ListParticipantIDs 会话的全部成员，用于个人频道的会话列表推送。
func (s *Store) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return nil, errs.ArgsError.WrapMsg("conversation_id is required")
	}
	cur, err := s.MemberColl.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetProjection(bson.M{"user_id": 1}))
	if err != nil {
		return nil, errs.StorageError.WrapMsg(err.Error())
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []string
	for cur.Next(ctx) {
		var m chatmodel.MemberModel
		if err := cur.Decode(&m); err != nil {
			continue
		}
		if m.UserID != "" {
			out = append(out, m.UserID)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, errs.StorageError.WrapMsg(err.Error())
	}
	return out, nil
}

// ListMessages 倒序拉一页历史（重连后客户端补拉用）。beforeSeq<=0 表示从最新开始。
func (s *Store) ListMessages(ctx context.Context, conversationID string, beforeSeq int64, limit int64) ([]*chatmodel.MessageModel, error) {
	if conversationID == "" {
		return nil, errs.ArgsError.WrapMsg("conversation_id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	filter := bson.M{"conversation_id": conversationID}
	if beforeSeq > 0 {
		filter["seq"] = bson.M{"$lt": beforeSeq}
	}
	cur, err := s.MsgColl.Find(ctx, filter,
		options.Find().SetSort(bson.M{"seq": -1}).SetLimit(limit))
	if err != nil {
		return nil, errs.StorageError.WrapMsg(err.Error())
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*chatmodel.MessageModel
	for cur.Next(ctx) {
		var m chatmodel.MessageModel
		if err := cur.Decode(&m); err != nil {
			return nil, errs.StorageError.WrapMsg(err.Error())
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, errs.StorageError.WrapMsg(err.Error())
	}
	return out, nil
}

// EnsureIndexes 建索引，启动时调一次即可。
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.MsgColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "msg_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: -1}}},
	})
	if err != nil {
		return errs.WrapMsg(err, "create msg indexes")
	}
	_, err = s.MemberColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errs.WrapMsg(err, "create member index")
	}
	_, err = s.ReadColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.WrapMsg(err, "create read index")
}
