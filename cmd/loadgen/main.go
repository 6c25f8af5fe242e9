// Command loadgen drives a weighted mix of banking traffic at a running
// bankd instance so the route baselines warm up and signals have something
// to fire on. A slice of the traffic deliberately targets missing resources
// and overdraws accounts to produce real 4xx responses.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var customers = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

var accounts = []string{
	"10001", "10002", "10003", "10004", "10005",
	"10006", "10007", "10008", "10009", "10010",
}

// task weights mirror a realistic read-heavy banking mix.
var tasks = []struct {
	weight int
	run    func(*generator)
}{
	{40, (*generator).viewProfile},
	{25, (*generator).deposit},
	{20, (*generator).viewTransactions},
	{15, (*generator).withdraw},
	{10, (*generator).transfer},
	{5, (*generator).health},
}

type generator struct {
	base      string
	client    *http.Client
	errorRate float64

	requests atomic.Int64
	failures atomic.Int64
}

func main() {
	target := flag.String("target", "http://localhost:8080", "bankd base URL")
	workers := flag.Int("workers", 8, "concurrent workers")
	rate := flag.Int("rate", 50, "total requests per second across all workers")
	duration := flag.Duration("duration", 12*time.Minute, "how long to run; 0 runs until interrupted")
	errorRate := flag.Float64("error-rate", 0.08, "fraction of requests aimed at bad resources")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	g := &generator{
		base:      *target,
		client:    &http.Client{Timeout: 10 * time.Second},
		errorRate: *errorRate,
	}

	slog.Info("loadgen starting",
		"target", *target, "workers", *workers, "rate", *rate, "duration", *duration)

	interval := time.Second / time.Duration(*rate)
	ticks := time.NewTicker(interval)
	defer ticks.Stop()

	work := make(chan func(*generator))
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range work {
				task(g)
			}
		}()
	}

	report := time.NewTicker(10 * time.Second)
	defer report.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-report.C:
			slog.Info("progress", "requests", g.requests.Load(), "failures", g.failures.Load())
		case <-ticks.C:
			select {
			case work <- pickTask():
			default: // workers saturated, shed load
			}
		}
	}

	close(work)
	wg.Wait()
	slog.Info("loadgen finished", "requests", g.requests.Load(), "failures", g.failures.Load())
}

func pickTask() func(*generator) {
	total := 0
	for _, t := range tasks {
		total += t.weight
	}
	n := rand.Intn(total)
	for _, t := range tasks {
		if n < t.weight {
			return t.run
		}
		n -= t.weight
	}
	return tasks[0].run
}

func (g *generator) viewProfile() {
	id := pick(customers)
	if g.misbehave() {
		id = "404"
	}
	g.get(fmt.Sprintf("/api/customers/%s/profile", id))
}

func (g *generator) deposit() {
	account := pick(accounts)
	amount := 50 + rand.Intn(950)
	if g.misbehave() {
		amount = -amount
	}
	g.post(fmt.Sprintf("/api/accounts/%s/deposit", account),
		fmt.Sprintf(`{"amount": %d}`, amount))
}

func (g *generator) withdraw() {
	account := pick(accounts)
	amount := 20 + rand.Intn(480)
	if g.misbehave() {
		amount = 10_000_000 // guaranteed overdraw
	}
	g.post(fmt.Sprintf("/api/accounts/%s/withdrawal", account),
		fmt.Sprintf(`{"amount": %d}`, amount))
}

func (g *generator) transfer() {
	src := pick(accounts)
	dst := pick(accounts)
	for dst == src {
		dst = pick(accounts)
	}
	if g.misbehave() {
		dst = "99999"
	}
	g.post(fmt.Sprintf("/api/accounts/%s/transfer", src),
		fmt.Sprintf(`{"destinationAccount": %q, "amount": %d}`, dst, 50+rand.Intn(250)))
}

func (g *generator) viewTransactions() {
	account := pick(accounts)
	if g.misbehave() {
		account = "99999"
	}
	g.get(fmt.Sprintf("/api/accounts/%s/transactions", account))
}

func (g *generator) health() {
	g.get("/health")
}

func (g *generator) misbehave() bool {
	return rand.Float64() < g.errorRate
}

func (g *generator) get(path string) {
	resp, err := g.client.Get(g.base + path)
	g.count(resp, err)
}

func (g *generator) post(path, body string) {
	resp, err := g.client.Post(g.base+path, "application/json", bytes.NewReader([]byte(body)))
	g.count(resp, err)
}

func (g *generator) count(resp *http.Response, err error) {
	g.requests.Add(1)
	if err != nil {
		g.failures.Add(1)
		return
	}
	if resp.StatusCode >= 400 {
		g.failures.Add(1)
	}
	resp.Body.Close()
}

func pick(values []string) string {
	return values[rand.Intn(len(values))]
}
