package ids

import (
	"strconv"
	"sync"
	"time"
)

// 雪花ID：41bit 毫秒时间戳 | 10bit 节点 | 12bit 序列。
// 时间戳在高位，同节点生成的ID随时间单调递增，消息侧直接拿它当会话内序号用。

type snowGen struct {
	mu      sync.Mutex
	epochMS int64
	nodeID  int64 // 0~1023
	seq     int64 // 0~4095
	lastMS  int64
}

var (
	gen     *snowGen
	genOnce sync.Once
)

func defaultGen() *snowGen {
	genOnce.Do(func() {
		gen = &snowGen{
			epochMS: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			nodeID:  1,
		}
	})
	return gen
}

// SetNodeID 设置节点号（0~1023），在 main() 初始化时调用一次
func SetNodeID(nodeID int64) {
	g := defaultGen()
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	g.mu.Lock()
	g.nodeID = nodeID
	g.mu.Unlock()
}

// Generate 生成一个新ID
func Generate() int64 {
	return defaultGen().next()
}

// GenerateString 十进制字符串形式，连接ID/消息ID走这个
func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

func (g *snowGen) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := time.Now().UnixMilli()
		if now < g.lastMS {
			// 时钟回拨，原地等
			time.Sleep(time.Duration(g.lastMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastMS {
			g.seq = (g.seq + 1) & 0xFFF
			if g.seq == 0 {
				for now <= g.lastMS {
					now = time.Now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastMS = now

		ts := (now - g.epochMS) & ((1 << 41) - 1)
		return (ts << 22) | (g.nodeID << 12) | g.seq
	}
}
