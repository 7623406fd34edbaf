package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 75 * time.Second
	pingPeriod = 25 * time.Second
)

// Client 一条到网关的连接。WS 为 nil 时是长轮询连接，出站帧同样排进
// Send 队列，由 GET /poll 拉走。单用户多端时每条连接各自一个 Client。
type Client struct {
	ConnID string
	WS     *websocket.Conn
	Send   chan []byte // 出站队列，单写协程消费

	mu       sync.RWMutex
	userID   string
	userName string

	done      chan struct{}
	closeOnce sync.Once
	lastSeen  int64 // Unix ms，长轮询的保活时间戳
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	c := &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	c.Touch()
	return c
}

// SetIdentity 上线宣告后补全身份
func (c *Client) SetIdentity(userID, userName string) {
	c.mu.Lock()
	c.userID = userID
	if userName != "" {
		c.userName = userName
	}
	c.mu.Unlock()
}

func (c *Client) Identity() (userID, userName string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.userName
}

func (c *Client) Touch() {
	atomic.StoreInt64(&c.lastSeen, time.Now().UnixMilli())
}

func (c *Client) IdleFor(d time.Duration) bool {
	return time.Now().UnixMilli()-atomic.LoadInt64(&c.lastSeen) > d.Milliseconds()
}

// Close 幂等；不 close(Send)，避免广播侧对已关闭通道写入
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}

func (c *Client) Done() <-chan struct{} { return c.done }

// Push 非阻塞入队。慢客户端队列满了直接丢帧，不拖垮广播
func (c *Client) Push(payload []byte) {
	if payload == nil {
		return
	}
	select {
	case <-c.done:
	case c.Send <- payload:
	default:
		logger.Warnf("[client] send queue full, drop frame conn=%s", c.ConnID)
	}
}

// WritePump 单写协程：排空 Send 队列并按周期发 ping。
// gorilla 的 WriteMessage 不能并发调用，所有写都走这里。
func (c *Client) WritePump() {
	if c.WS == nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[client] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
