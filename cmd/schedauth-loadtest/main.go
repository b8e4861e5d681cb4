// Command schedauth-loadtest drives concurrent access-token validation and
// refresh rotation through an Engine and reports latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/MrEthical07/schedauth/storage/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// session is one logged-in client. mu serialises its refreshes so every
// rotation presents the token the previous one returned.
type session struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 10000, "number of logged-in accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	cfg := schedauth.DefaultConfig()
	cfg.Environment = "test"
	cfg.Audit.Enabled = false
	repo := memory.NewAccounts()
	engine, err := schedauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountRepository(repo).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", *accounts)
	startSeed := time.Now()
	sessions := make([]session, *accounts)
	for i := range sessions {
		acct := &schedauth.Account{
			ID:        fmt.Sprintf("acct-%d", i),
			Email:     fmt.Sprintf("load-%d@example.com", i),
			Username:  fmt.Sprintf("load%d", i),
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.Create(ctx, acct); err != nil {
			fmt.Fprintf(os.Stderr, "seed account: %v\n", err)
			os.Exit(1)
		}
		pair, err := engine.IssueTokens(ctx, acct)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue tokens: %v\n", err)
			os.Exit(1)
		}
		sessions[i].access, sessions[i].refresh = pair.Access.Token, pair.Refresh.Token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validate := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		s := &sessions[r.Intn(len(sessions))]
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token)
		return err
	})
	refresh := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		s := &sessions[r.Intn(len(sessions))]
		s.mu.Lock()
		defer s.mu.Unlock()
		pair, err := engine.Refresh(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access, s.refresh = pair.Access.Token, pair.Refresh.Token
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validate)
	printStats("refresh", refresh)
}

// runPhase spreads ops calls of op over concurrency workers. Only the op
// itself is timed.
func runPhase(ops, concurrency int, seedStep int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedStep))
			for atomic.AddInt64(&cursor, 1) <= int64(ops) {
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond),
	)
}
