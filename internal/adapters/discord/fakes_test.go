package discord

import (
	"context"
	"sync"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
)

type sent struct {
	channelID string
	text      string
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeGateway) SendMessage(_ context.Context, channelID, text string, _ []ports.Attachment) (ports.MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ports.MessageHandle{}, f.err
	}
	f.sent = append(f.sent, sent{channelID, text})
	return ports.MessageHandle{ID: "m", ChannelID: channelID}, nil
}

func (f *fakeGateway) CreatePrivateChannel(context.Context, string, string, string) (ports.Channel, error) {
	return ports.Channel{}, nil
}
func (f *fakeGateway) DeleteChannel(context.Context, string) error { return nil }
func (f *fakeGateway) FetchUser(context.Context, string) (*ports.User, error) {
	return nil, nil
}
func (f *fakeGateway) ListChildChannels(context.Context, string) ([]ports.Channel, error) {
	return nil, nil
}

type fakeController struct {
	calls   []string
	actor   ports.User
	target  ports.User
	priv    bool
	msgs    []ports.Message
	record  model.AttendanceRecord
	outcome core.Outcome
	err     error
}

func (f *fakeController) ClockIn(_ context.Context, u ports.User) (core.Outcome, error) {
	f.calls = append(f.calls, "clock-in:"+u.ID)
	return f.outcome, f.err
}

func (f *fakeController) ClockOut(_ context.Context, u ports.User) (core.Outcome, error) {
	f.calls = append(f.calls, "clock-out:"+u.ID)
	return f.outcome, f.err
}

func (f *fakeController) HandleMessage(_ context.Context, msg ports.Message) (bool, error) {
	f.msgs = append(f.msgs, msg)
	return true, f.err
}

func (f *fakeController) Reset(_ context.Context, actor ports.User, privileged bool, target ports.User) (core.Outcome, error) {
	f.calls = append(f.calls, "reset:"+target.ID)
	f.actor, f.priv, f.target = actor, privileged, target
	return f.outcome, f.err
}

func (f *fakeController) State(context.Context, string) model.AttendanceRecord {
	return f.record
}

type fakeNotifier struct {
	texts []string
}

func (f *fakeNotifier) Notify(_ context.Context, _, text string) {
	f.texts = append(f.texts, text)
}

type fakeAudit struct {
	events []ports.AuditEvent
}

func (f *fakeAudit) Record(_ context.Context, ev ports.AuditEvent) {
	f.events = append(f.events, ev)
}
