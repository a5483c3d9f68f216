package service

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
	"github.com/d60-Lab/chatsync/pkg/logger"
)

// Notifier 异步投递通知，调用方不等待结果
type Notifier interface {
	Enqueue(senderID string, n *model.Notification)
}

type notificationCreator interface {
	Create(ctx context.Context, n *model.Notification) error
}

type notifyJob struct {
	senderID string
	n        *model.Notification
	enqAt    time.Time
}

// Dispatcher 本地异步通知执行器：有界队列 + N 个 worker
// 每条通知按发送方受 notification 配额限制，失败只记日志和 Sentry
type Dispatcher struct {
	notifications notificationCreator
	limiter       *ratelimit.Limiter
	ch            chan notifyJob
	metricsCh     chan time.Duration

	mu      sync.Mutex
	dropped int64
	limited int64
}

func NewDispatcher(notifications notificationCreator, limiter *ratelimit.Limiter, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &Dispatcher{
		notifications: notifications,
		limiter:       limiter,
		ch:            make(chan notifyJob, queueSize),
		metricsCh:     make(chan time.Duration, 65536),
	}
}

// Start 启动 worker，返回的函数停止接收并在 ctx 截止前排空队列
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-d.ch:
					d.handle(job)
				case <-stopCh:
					// 停止后把剩余任务处理完
					for {
						select {
						case job := <-d.ch:
							d.handle(job)
						default:
							return
						}
					}
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) handle(job notifyJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.limiter != nil && job.senderID != "" &&
		!d.limiter.Check(ctx, dispatchScope(job.senderID), ratelimit.ActionNotification) {
		d.mu.Lock()
		d.limited++
		d.mu.Unlock()
		logger.Debug("notification rate limited",
			zap.String("sender", job.senderID), zap.String("user", job.n.UserID))
		return
	}

	if err := d.notifications.Create(ctx, job.n); err != nil {
		logger.Error("deliver notification failed",
			zap.String("user", job.n.UserID),
			zap.String("type", string(job.n.Type)),
			zap.Error(err))
		sentry.CaptureException(err)
		return
	}

	select {
	case d.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// dispatchScope 与 HTTP 层的配额分开计数
func dispatchScope(senderID string) string { return "dispatch:" + senderID }

// Enqueue 队列满时直接丢弃
func (d *Dispatcher) Enqueue(senderID string, n *model.Notification) {
	if n == nil || n.UserID == "" || n.UserID == senderID {
		return
	}
	select {
	case d.ch <- notifyJob{senderID: senderID, n: n, enqAt: time.Now()}:
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		logger.Warn("notify queue full, drop",
			zap.String("sender", senderID), zap.String("user", n.UserID), zap.String("type", string(n.Type)))
	}
}

// Metrics 返回投递落地耗时的只读通道（每成功一条发送一次 duration）
func (d *Dispatcher) Metrics() <-chan time.Duration { return d.metricsCh }

// QueueLen 当前队列长度（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.ch) }

// Stats 丢弃数与限流数
func (d *Dispatcher) Stats() (dropped, limited int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped, d.limited
}
