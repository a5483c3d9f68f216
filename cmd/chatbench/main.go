package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d60-Lab/chatsync/config"
	"github.com/d60-Lab/chatsync/internal/cache"
	"github.com/d60-Lab/chatsync/internal/model"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/internal/repository"
	"github.com/d60-Lab/chatsync/internal/service"
	"github.com/d60-Lab/chatsync/pkg/database"
	"github.com/d60-Lab/chatsync/pkg/redisx"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v >= 0 {
			return v
		}
	}
	return def
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	rdb := must(redisx.NewClient(ctx, cfg.Redis))

	// params
	N := envInt("N", 200)            // peers chatting with the hub user
	MSGS := envInt("MSGS", 20)       // messages per peer
	WORKERS := envInt("WORKERS", 8)  // concurrent senders
	QUOTA := envInt("QUOTA", 1) == 1 // apply the message quota before sending

	// clean bench rows for a reproducible run
	_ = db.Exec("DELETE FROM messages WHERE chat_id LIKE 'bench-%'").Error
	_ = db.Exec("DELETE FROM user_chats WHERE user_id LIKE 'bench-%'").Error
	_ = db.Exec("DELETE FROM chats WHERE id LIKE 'bench-%'").Error
	_ = db.Exec("DELETE FROM notifications WHERE user_id LIKE 'bench-%'").Error
	_ = db.Exec("DELETE FROM users WHERE id LIKE 'bench-%'").Error

	// seed hub + N peers
	hub := model.User{ID: "bench-hub", Username: "bench-hub", DisplayName: "Hub"}
	users := []model.User{hub}
	for i := 0; i < N; i++ {
		id := fmt.Sprintf("bench-%05d", i)
		users = append(users, model.User{ID: id, Username: id, DisplayName: "Peer " + strconv.Itoa(i)})
	}
	if err := db.CreateInBatches(&users, 500).Error; err != nil {
		panic(err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb, "bench:"), nil, ratelimit.Policy{})
	broker := realtime.NewBroker(rdb)
	profiles := cache.NewProfileCache(repository.NewUserRepository(db), rdb, cache.DefaultTTL)
	notifications := service.NewNotificationService(db, broker)
	dispatcher := service.NewDispatcher(notifications, limiter, cfg.Notify.QueueSize)
	stop := dispatcher.Start(cfg.Notify.Workers)
	chats := service.NewChatService(db, profiles, broker, dispatcher)

	// create chats, timing find-or-create
	createDurations := make([]time.Duration, 0, N)
	chatIDs := make([]string, N)
	for i := 0; i < N; i++ {
		st := time.Now()
		c, err := chats.FindOrCreateChat(ctx, users[i+1].ID, hub.ID)
		if err != nil {
			panic(err)
		}
		createDurations = append(createDurations, time.Since(st))
		chatIDs[i] = c.ID
	}

	// fan the sends out over WORKERS goroutines
	type job struct{ peer, seq int }
	jobs := make(chan job, N*MSGS)
	for s := 0; s < MSGS; s++ {
		for p := 0; p < N; p++ {
			jobs <- job{peer: p, seq: s}
		}
	}
	close(jobs)

	sendDurs := make([]time.Duration, 0, N*MSGS)
	var (
		mu       sync.Mutex
		rejected atomic.Int64
		failed   atomic.Int64
		wg       sync.WaitGroup
	)
	start := time.Now()
	for w := 0; w < WORKERS; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				sender := users[j.peer+1].ID
				if QUOTA && !limiter.Check(ctx, sender, ratelimit.ActionMessage) {
					rejected.Add(1)
					continue
				}
				st := time.Now()
				if _, err := chats.SendMessage(ctx, chatIDs[j.peer], sender, fmt.Sprintf("hello %d", j.seq)); err != nil {
					failed.Add(1)
					continue
				}
				d := time.Since(st)
				mu.Lock()
				sendDurs = append(sendDurs, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// drain dispatcher then collect landing metrics
	stopCtx, cancel := context.WithTimeout(ctx, time.Minute)
	if err := stop(stopCtx); err != nil {
		fmt.Printf("dispatcher drain: %v\n", err)
	}
	cancel()
	land := make([]time.Duration, 0, len(sendDurs))
	for {
		select {
		case d := <-dispatcher.Metrics():
			land = append(land, d)
			continue
		default:
		}
		break
	}

	// output
	fmt.Printf("N=%d MSGS=%d WORKERS=%d QUOTA=%v\n", N, MSGS, WORKERS, QUOTA)
	fmt.Printf("FindOrCreate latency: avg=%v p95=%v p99=%v\n", avg(createDurations), pct(createDurations, 0.95), pct(createDurations, 0.99))
	fmt.Printf("SendMessage tx latency: sent=%d avg=%v p95=%v p99=%v throughput=%.1f/s\n",
		len(sendDurs), avg(sendDurs), pct(sendDurs, 0.95), pct(sendDurs, 0.99), float64(len(sendDurs))/elapsed.Seconds())
	fmt.Printf("Rate limited sends: %d, failed sends: %d\n", rejected.Load(), failed.Load())
	dropped, limited := dispatcher.Stats()
	fmt.Printf("Notifications landed: samples=%d avg=%v p95=%v p99=%v dropped=%d limited=%d\n",
		len(land), avg(land), pct(land, 0.95), pct(land, 0.99), dropped, limited)
	pc := profiles.Counters()
	fmt.Printf("Profile cache: hits=%d misses=%d db_loads=%d\n", pc.Hits, pc.Misses, pc.DBLoads)

	// hub chat list read, the hottest query
	st := time.Now()
	list, err := chats.ListChats(ctx, hub.ID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("ListChats (hub): %v, rows=%d\n", time.Since(st), len(list))
}
