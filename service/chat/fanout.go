package chat

import "sync"

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout 广播投递的工作池：房间快照在调用方拿好，这里只管往每条
// 连接的队列塞，慢客户端由 Client.Push 自己丢帧。
type Fanout struct {
	jobs chan fanoutJob
	done chan struct{}
	once sync.Once
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-f.done:
					return
				case job := <-f.jobs:
					for _, c := range job.conns {
						c.Push(job.payload)
					}
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case f.jobs <- fanoutJob{conns: conns, payload: payload}:
	case <-f.done:
	}
}

// Close 幂等；工作协程退出，之后的广播直接丢弃
func (f *Fanout) Close() {
	f.once.Do(func() { close(f.done) })
}
