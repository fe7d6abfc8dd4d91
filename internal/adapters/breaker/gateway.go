package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"attendance.service/internal/ports"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("chat platform unavailable")

// Gateway wraps a ChatGateway with a per-call timeout and a circuit
// breaker so a struggling platform fails fast instead of piling up
// blocked transitions.
type Gateway struct {
	next    ports.ChatGateway
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

var _ ports.ChatGateway = (*Gateway)(nil)

// New wraps next. A timeout <= 0 disables the per-call deadline.
func New(next ports.ChatGateway, timeout time.Duration) *Gateway {
	settings := gobreaker.Settings{
		Name:        "Chat-Gateway",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		// Missing users and channels are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrParentNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}
	return &Gateway{next: next, timeout: timeout, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State exposes the breaker state for health reporting.
func (g *Gateway) State() string {
	return g.cb.State().String()
}

func (g *Gateway) call(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	res, err := g.cb.Execute(func() (interface{}, error) {
		if g.timeout <= 0 {
			return fn(ctx)
		}
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(cctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return res, err
}

func (g *Gateway) SendMessage(ctx context.Context, channelID, text string, attachments []ports.Attachment) (ports.MessageHandle, error) {
	res, err := g.call(ctx, "send message", func(ctx context.Context) (any, error) {
		return g.next.SendMessage(ctx, channelID, text, attachments)
	})
	if err != nil {
		return ports.MessageHandle{}, err
	}
	return res.(ports.MessageHandle), nil
}

func (g *Gateway) CreatePrivateChannel(ctx context.Context, parentID, name, allowedUserID string) (ports.Channel, error) {
	res, err := g.call(ctx, "create channel", func(ctx context.Context) (any, error) {
		return g.next.CreatePrivateChannel(ctx, parentID, name, allowedUserID)
	})
	if err != nil {
		return ports.Channel{}, err
	}
	return res.(ports.Channel), nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := g.call(ctx, "delete channel", func(ctx context.Context) (any, error) {
		return nil, g.next.DeleteChannel(ctx, channelID)
	})
	return err
}

func (g *Gateway) FetchUser(ctx context.Context, userID string) (*ports.User, error) {
	res, err := g.call(ctx, "fetch user", func(ctx context.Context) (any, error) {
		return g.next.FetchUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	u, _ := res.(*ports.User)
	return u, nil
}

func (g *Gateway) ListChildChannels(ctx context.Context, parentID string) ([]ports.Channel, error) {
	res, err := g.call(ctx, "list channels", func(ctx context.Context) (any, error) {
		return g.next.ListChildChannels(ctx, parentID)
	})
	if err != nil {
		return nil, err
	}
	chs, _ := res.([]ports.Channel)
	return chs, nil
}
