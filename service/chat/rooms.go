package chat

import (
	"sync"
)

// ===== 频道命名 =====

// UserChannel 个人频道：登记时自动加入，做会话列表等定向通知
func UserChannel(userID string) string { return "user:" + userID }

// ConversationChannel 会话频道：显式 join/leave
func ConversationChannel(conversationID string) string { return "conversation:" + conversationID }

// ===== 房间路由 =====

// RoomRouter 连接与频道的多对多关系。成员关系只在内存里，随连接
// 生灭，不落库；Drop 把连接从所有频道一次摘干净，不留死成员。
type RoomRouter struct {
	mu      sync.RWMutex
	conns   map[string]*Client             // 全部活跃连接
	members map[string]map[string]*Client  // channel -> connID -> client
	joined  map[string]map[string]struct{} // connID -> channel 集合（反查）

	fan *Fanout
}

func NewRoomRouter(fan *Fanout) *RoomRouter {
	return &RoomRouter{
		conns:   make(map[string]*Client),
		members: make(map[string]map[string]*Client),
		joined:  make(map[string]map[string]struct{}),
		fan:     fan,
	}
}

// Register 登记连接（连接建立时）
func (r *RoomRouter) Register(c *Client) {
	if c == nil {
		return
	}
	r.mu.Lock()
	r.conns[c.ConnID] = c
	r.mu.Unlock()
}

// Get 按连接ID取客户端
func (r *RoomRouter) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// Join 幂等；未登记的连接直接忽略
func (r *RoomRouter) Join(connID, channel string) {
	if connID == "" || channel == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	set, ok := r.members[channel]
	if !ok {
		set = make(map[string]*Client)
		r.members[channel] = set
	}
	set[connID] = c

	chs, ok := r.joined[connID]
	if !ok {
		chs = make(map[string]struct{})
		r.joined[connID] = chs
	}
	chs[channel] = struct{}{}
}

// Leave 不在频道里时是无操作
func (r *RoomRouter) Leave(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, channel)
}

func (r *RoomRouter) leaveLocked(connID, channel string) {
	if set, ok := r.members[channel]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.members, channel)
		}
	}
	if chs, ok := r.joined[connID]; ok {
		delete(chs, channel)
		if len(chs) == 0 {
			delete(r.joined, connID)
		}
	}
}

// Drop 连接收尾：从所有频道和连接表摘除，返回摘掉的客户端
func (r *RoomRouter) Drop(connID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	delete(r.conns, connID)
	for channel := range r.joined[connID] {
		r.leaveLocked(connID, channel)
	}
	delete(r.joined, connID)
	return c, ok
}

// snapshot 拿成员快照后再投递：广播以调用时刻的成员集为准，
// 之后加入的连接收不到这条（不回放）
func (r *RoomRouter) snapshot(channel, exceptConnID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[channel]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for id, c := range set {
		if id == exceptConnID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// BroadcastTo 投给频道全体成员
func (r *RoomRouter) BroadcastTo(channel string, payload []byte) {
	r.fan.Broadcast(r.snapshot(channel, ""), payload)
}

// BroadcastToOthers 排除源连接（typing 不回显给自己）
func (r *RoomRouter) BroadcastToOthers(originConnID, channel string, payload []byte) {
	r.fan.Broadcast(r.snapshot(channel, originConnID), payload)
}

// BroadcastExcept 排除一组连接（如某用户的全部终端）
func (r *RoomRouter) BroadcastExcept(channel string, exceptConnIDs []string, payload []byte) {
	skip := make(map[string]struct{}, len(exceptConnIDs))
	for _, id := range exceptConnIDs {
		skip[id] = struct{}{}
	}

	r.mu.RLock()
	set := r.members[channel]
	out := make([]*Client, 0, len(set))
	for id, c := range set {
		if _, ok := skip[id]; ok {
			continue
		}
		out = append(out, c)
	}
	r.mu.RUnlock()
	r.fan.Broadcast(out, payload)
}

// BroadcastAll 全体连接（上下线通告），排除源连接
func (r *RoomRouter) BroadcastAll(originConnID string, payload []byte) {
	r.mu.RLock()
	out := make([]*Client, 0, len(r.conns))
	for id, c := range r.conns {
		if id == originConnID {
			continue
		}
		out = append(out, c)
	}
	r.mu.RUnlock()
	r.fan.Broadcast(out, payload)
}

// Close 停掉广播工作池
func (r *RoomRouter) Close() { r.fan.Close() }

// ConnCount 活跃连接数
func (r *RoomRouter) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
