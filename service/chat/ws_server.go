package chat

import (
	"context"
	"net"
	"time"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/logger"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/ids"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const dispatchTimeout = 10 * time.Second

// HandleWS WebSocket 接入：一读循环 + 一写泵，断开时统一收尾。
// 重连后由客户端重新宣告在线、重新 join 房间。
func (s *Server) HandleWS(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.conf.CheckOrigin,
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 非 WebSocket 请求/握手失败
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, s.conf.SendQueueSize)
	s.rooms.Register(client)
	safe.Go("ws-write-"+client.ConnID, client.WritePump)

	client.Push(BuildConnAck(client.ConnID, s.conf.NodeID).Encode())
	logger.Infof("[ws] connected conn=%s remote=%s", client.ConnID, ws.RemoteAddr())

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	// ---- 读循环：只读不写，出错即退出，写泵收尾 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			s.disp.sendError(client, perr)
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dispatchTimeout)
		s.disp.Dispatch(ctx, client, frame)
		cancel()
	}

	// ---- 退出阶段 ----
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.disp.Disconnect(ctx, client)
}

// HandleOnlineQuery GET /api/online/:userId —— 本机记账优先，本机
// 不在线时再查 Redis 快照（可能在别的节点上）。
func (s *Server) HandleOnlineQuery(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(400, gin.H{"code": 1001, "msg": "userId is required"})
		return
	}

	online := s.presence.IsOnline(userID)
	nodeID := ""
	if online {
		nodeID = s.conf.NodeID
	} else if store := s.disp.online; store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if n, ok, err := store.Lookup(ctx, userID); err == nil && ok {
			online, nodeID = true, n
		}
	}

	c.JSON(200, gin.H{
		"userId":      userID,
		"online":      online,
		"nodeId":      nodeID,
		"onlineCount": s.presence.OnlineCount(),
	})
}
