package chat

import "sync"

// PresenceTracker 用户在线记账，进程内唯一可信源。
// byUser: userID -> 连接ID集合；byConn: 连接ID -> userID 反查。
// 一个连接ID同一时刻只属于一个用户；集合清空即离线，条目删除。
type PresenceTracker struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{}
	byConn map[string]string
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
	}
}

// Register 把连接挂到用户名下，重复注册是无操作。
// 返回 first=true 表示 0→1 的上线跳变，只有这时才广播 online。
// 连接此前属于别的用户时 displaced 给出旧主人，displacedLast=true
// 表示旧主人因此发生 1→0 的下线跳变，调用方要补下线收尾。
func (t *PresenceTracker) Register(userID, connID string) (first bool, displaced string, displacedLast bool) {
	if userID == "" || connID == "" {
		return false, "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if owner, ok := t.byConn[connID]; ok {
		if owner == userID {
			return false, "", false // 幂等
		}
		// 连接换了主人（同一连接重新宣告）：先摘干净
		displaced = owner
		displacedLast = t.removeLocked(owner, connID)
	}

	set, ok := t.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		t.byUser[userID] = set
	}
	set[connID] = struct{}{}
	t.byConn[connID] = userID
	return len(set) == 1, displaced, displacedLast
}

// Unregister 摘掉连接。返回属主和 last=true（1→0 下线跳变）。
// 未知连接静默无操作。
func (t *PresenceTracker) Unregister(connID string) (userID string, last bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.byConn[connID]
	if !ok {
		return "", false
	}
	return userID, t.removeLocked(userID, connID)
}

func (t *PresenceTracker) removeLocked(userID, connID string) (last bool) {
	delete(t.byConn, connID)
	set, ok := t.byUser[userID]
	if !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.byUser, userID)
		return true
	}
	return false
}

func (t *PresenceTracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byUser[userID]) > 0
}

// OnlineCount 在线用户数（按用户去重，不是连接数）
func (t *PresenceTracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byUser)
}

// ConnsOf 用户名下的全部连接ID（多端）
func (t *PresenceTracker) ConnsOf(userID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := t.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// OwnerOf 连接的属主
func (t *PresenceTracker) OwnerOf(connID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.byConn[connID]
	return u, ok
}
