package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/logger"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/ids"

	"github.com/gin-gonic/gin"
)

// 长轮询兜底通道：拿不到 WebSocket 的客户端（老代理、严格防火墙）
// 用三个 HTTP 端点达成同样的事件流，连接对象和分发逻辑完全复用。
//
//   POST /poll           开连接，返回 connId
//   POST /poll/:connId   提交一帧入站事件
//   GET  /poll/:connId   拉出站帧（最多等 wait，默认 25s）
//
// 不再轮询的连接由 sweeper 按 PollTTL 当作断开处理。

const maxPollWait = 55 * time.Second

// HandlePollOpen 开一条长轮询连接
func (s *Server) HandlePollOpen(c *gin.Context) {
	client := NewClient(ids.GenerateString(), nil, s.conf.SendQueueSize)
	s.rooms.Register(client)

	s.pollMu.Lock()
	s.pollConns[client.ConnID] = client
	s.pollMu.Unlock()

	client.Push(BuildConnAck(client.ConnID, s.conf.NodeID).Encode())
	logger.Infof("[poll] connected conn=%s", client.ConnID)
	c.JSON(200, gin.H{"connId": client.ConnID})
}

func (s *Server) pollClient(c *gin.Context) (*Client, bool) {
	client, ok := s.lookupPoll(c.Param("connId"))
	if !ok {
		c.JSON(410, gin.H{"code": 1004, "msg": "connection expired"})
		return nil, false
	}
	client.Touch()
	return client, true
}

func (s *Server) lookupPoll(connID string) (*Client, bool) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	client, ok := s.pollConns[connID]
	return client, ok
}

// HandlePollSend 提交一帧，走和 WebSocket 相同的分发
func (s *Server) HandlePollSend(c *gin.Context) {
	client, ok := s.pollClient(c)
	if !ok {
		return
	}
	var frame Frame
	if err := c.ShouldBindJSON(&frame); err != nil || frame.Type == 0 {
		c.JSON(400, gin.H{"code": 1001, "msg": "bad frame"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dispatchTimeout)
	defer cancel()
	s.disp.Dispatch(ctx, client, &frame)
	c.Status(204)
}

// HandlePollRecv 拉出站帧：先等第一帧（最多 wait），再把队列里
// 已有的都带走
func (s *Server) HandlePollRecv(c *gin.Context) {
	client, ok := s.pollClient(c)
	if !ok {
		return
	}

	wait := 25 * time.Second
	if q := c.Query("wait"); q != "" {
		if d, err := time.ParseDuration(q); err == nil && d > 0 && d <= maxPollWait {
			wait = d
		}
	}

	frames := make([]json.RawMessage, 0, 8)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case payload := <-client.Send:
		frames = append(frames, payload)
	case <-timer.C:
	case <-client.Done():
		c.JSON(410, gin.H{"code": 1004, "msg": "connection closed"})
		return
	case <-c.Request.Context().Done():
		return
	}

	// 顺手带走已排队的
	for {
		select {
		case payload := <-client.Send:
			frames = append(frames, payload)
			continue
		default:
		}
		break
	}

	client.Touch()
	c.JSON(200, gin.H{"frames": frames})
}

// sweepPolls 周期清理不再轮询的连接，等价于对端断开
func (s *Server) sweepPolls() {
	ticker := time.NewTicker(s.conf.PollSweep)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			var expired []*Client
			s.pollMu.Lock()
			for id, client := range s.pollConns {
				if client.IdleFor(s.conf.PollTTL) {
					delete(s.pollConns, id)
					expired = append(expired, client)
				}
			}
			s.pollMu.Unlock()

			for _, client := range expired {
				logger.Infof("[poll] expired conn=%s", client.ConnID)
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				s.disp.Disconnect(ctx, client)
				cancel()
			}
		}
	}
}
