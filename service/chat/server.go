package chat

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ServerConf 网关配置
type ServerConf struct {
	NodeID        string
	SendQueueSize int           // 每连接出站队列长度
	FanoutWorkers int           // 广播工作协程数
	PollTTL       time.Duration // 长轮询连接的保活 TTL
	PollSweep     time.Duration // 过期长轮询连接的清理周期
	CheckOrigin   func(r *http.Request) bool
}

func (c *ServerConf) norm() {
	if c.NodeID == "" {
		c.NodeID = "chat_gw-1"
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.FanoutWorkers <= 0 {
		c.FanoutWorkers = 4
	}
	if c.PollTTL <= 0 {
		c.PollTTL = 60 * time.Second
	}
	if c.PollSweep <= 0 {
		c.PollSweep = 10 * time.Second
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
}

// Server 实时网关：在线记账 + 房间路由 + 事件分发，显式构造、显式
// Close，不做包级单例，方便多实例和单测。
type Server struct {
	conf     ServerConf
	presence *PresenceTracker
	rooms    *RoomRouter
	disp     *Dispatcher

	pollMu    sync.Mutex
	pollConns map[string]*Client

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewServer(conf ServerConf, gw Gateway, online OnlineStore) *Server {
	conf.norm()
	presence := NewPresenceTracker()
	rooms := NewRoomRouter(NewFanout(conf.FanoutWorkers, 1024))
	s := &Server{
		conf:      conf,
		presence:  presence,
		rooms:     rooms,
		disp:      NewDispatcher(presence, rooms, gw, online),
		pollConns: make(map[string]*Client),
		stopCh:    make(chan struct{}),
	}
	go s.sweepPolls()
	return s
}

func (s *Server) Presence() *PresenceTracker { return s.presence }
func (s *Server) Rooms() *RoomRouter         { return s.rooms }
func (s *Server) Disp() *Dispatcher          { return s.disp }

// Close 停掉清理协程并踢掉所有连接
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.pollMu.Lock()
	for id := range s.pollConns {
		delete(s.pollConns, id)
	}
	s.pollMu.Unlock()

	for _, id := range s.allConnIDs() {
		if c, ok := s.rooms.Get(id); ok {
			s.disp.Disconnect(ctx, c)
		}
	}
	// 连接都踢完了才停工作池，离场通告要先排进去
	s.rooms.Close()
}

func (s *Server) allConnIDs() []string {
	s.rooms.mu.RLock()
	defer s.rooms.mu.RUnlock()
	out := make([]string, 0, len(s.rooms.conns))
	for id := range s.rooms.conns {
		out = append(out, id)
	}
	return out
}
