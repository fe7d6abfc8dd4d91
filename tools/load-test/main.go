package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"attendance.service/internal/adapters/breaker"
	"attendance.service/internal/core"
	"attendance.service/internal/ports"
	"github.com/rs/zerolog"
)

// memGateway is an in-memory chat platform with a fixed per-call latency.
type memGateway struct {
	latency time.Duration
	nextID  atomic.Int64

	mu       sync.Mutex
	channels map[string]ports.Channel
	created  map[string]int // allowed user -> channels created
	sent     int
}

func newMemGateway(latency time.Duration) *memGateway {
	return &memGateway{
		latency:  latency,
		channels: map[string]ports.Channel{},
		created:  map[string]int{},
	}
}

func (g *memGateway) wait(ctx context.Context) error {
	select {
	case <-time.After(g.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *memGateway) SendMessage(ctx context.Context, channelID, _ string, _ []ports.Attachment) (ports.MessageHandle, error) {
	if err := g.wait(ctx); err != nil {
		return ports.MessageHandle{}, err
	}
	g.mu.Lock()
	g.sent++
	g.mu.Unlock()
	return ports.MessageHandle{ID: strconv.FormatInt(g.nextID.Add(1), 10), ChannelID: channelID}, nil
}

func (g *memGateway) CreatePrivateChannel(ctx context.Context, parentID, name, allowedUserID string) (ports.Channel, error) {
	if err := g.wait(ctx); err != nil {
		return ports.Channel{}, err
	}
	ch := ports.Channel{ID: "c" + strconv.FormatInt(g.nextID.Add(1), 10), Name: name, ParentID: parentID}
	g.mu.Lock()
	g.channels[ch.ID] = ch
	g.created[allowedUserID]++
	g.mu.Unlock()
	return ch, nil
}

func (g *memGateway) DeleteChannel(ctx context.Context, channelID string) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.channels[channelID]; !ok {
		return ports.ErrNotFound
	}
	delete(g.channels, channelID)
	return nil
}

func (g *memGateway) FetchUser(_ context.Context, userID string) (*ports.User, error) {
	return &ports.User{ID: userID, Name: "user-" + userID}, nil
}

func (g *memGateway) ListChildChannels(_ context.Context, parentID string) ([]ports.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []ports.Channel
	for _, ch := range g.channels {
		if ch.ParentID == parentID {
			out = append(out, ch)
		}
	}
	return out, nil
}

type counters struct {
	success, guard, failed atomic.Int64
}

func (c *counters) add(err error) {
	switch {
	case err == nil:
		c.success.Add(1)
	case errors.Is(err, core.ErrGuardViolation):
		c.guard.Add(1)
	default:
		c.failed.Add(1)
	}
}

func main() {
	numUsers := flag.Int("users", 5000, "simulated users")
	concurrency := flag.Int("concurrency", 200, "users driven at the same time")
	latency := flag.Duration("latency", 2*time.Millisecond, "simulated platform latency per call")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	gw := newMemGateway(*latency)
	gateway := breaker.New(gw, 5*time.Second)
	audit := ports.AuditLogs()
	notifier := ports.Notifiers()
	workspaces := core.NewWorkspaceManager(gateway, audit, "category")
	svc := core.NewSessionService(core.NewMemoryStore(), workspaces, gateway, notifier, audit, core.Options{
		ButtonChannelID:  "buttons",
		ReportsChannelID: "reports",
	})

	fmt.Printf("Starting load test: %d users with concurrency %d and %s platform latency\n", *numUsers, *concurrency, *latency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, *concurrency)
	var clockIns, reports, clockOuts counters

	startTime := time.Now()
	ctx := context.Background()

	for i := 0; i < *numUsers; i++ {
		wg.Add(1)
		sem <- struct{}{}

		user := ports.User{ID: fmt.Sprintf("%d", 100000+i), Name: fmt.Sprintf("load-%d", i)}

		go func(u ports.User) {
			defer wg.Done()
			defer func() { <-sem }()

			// Two clicks on Clock In at the same moment; exactly one wins.
			var inner sync.WaitGroup
			for j := 0; j < 2; j++ {
				inner.Add(1)
				go func() {
					defer inner.Done()
					_, err := svc.ClockIn(ctx, u)
					clockIns.add(err)
				}()
			}
			inner.Wait()

			ws, ok := svc.Workspace(u.ID)
			if !ok {
				reports.add(errors.New("no workspace after clock-in"))
				return
			}
			_, err := svc.HandleMessage(ctx, ports.Message{
				ID:          "m-" + u.ID,
				ChannelID:   ws.ID,
				Author:      u,
				Content:     core.ReportMarker + " load test",
				Attachments: []ports.Attachment{{Filename: "report.txt", URL: "mem://report.txt"}},
			})
			reports.add(err)

			_, err = svc.ClockOut(ctx, u)
			clockOuts.add(err)
		}(user)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Printf("\nLoad test finished in %v\n", duration)
	fmt.Printf("Clock-in:  %d ok, %d rejected duplicates, %d failed\n", clockIns.success.Load(), clockIns.guard.Load(), clockIns.failed.Load())
	fmt.Printf("Report:    %d ok, %d failed\n", reports.success.Load(), reports.failed.Load()+reports.guard.Load())
	fmt.Printf("Clock-out: %d ok, %d rejected, %d failed\n", clockOuts.success.Load(), clockOuts.guard.Load(), clockOuts.failed.Load())
	fmt.Printf("Throughput: %.2f users/sec, %d platform messages\n", float64(*numUsers)/duration.Seconds(), gw.sent)

	var problems []string
	gw.mu.Lock()
	for id, n := range gw.created {
		if n != 1 {
			problems = append(problems, fmt.Sprintf("user %s got %d channels", id, n))
		}
	}
	if left := len(gw.channels); left != 0 {
		problems = append(problems, fmt.Sprintf("%d channels left open", left))
	}
	gw.mu.Unlock()
	if svc.ActiveSessions() != 0 {
		problems = append(problems, fmt.Sprintf("%d users still clocked in", svc.ActiveSessions()))
	}
	if clockIns.guard.Load() != int64(*numUsers) {
		problems = append(problems, fmt.Sprintf("expected %d rejected duplicate clock-ins, got %d", *numUsers, clockIns.guard.Load()))
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Println("FAIL:", p)
		}
		os.Exit(1)
	}
	fmt.Println("OK: one workspace per user, all sessions closed")
}
