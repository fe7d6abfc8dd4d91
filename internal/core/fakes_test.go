package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
)

type sentMessage struct {
	channelID   string
	text        string
	attachments int
}

// fakeGateway is an in-memory chat platform.
type fakeGateway struct {
	mu       sync.Mutex
	nextID   int
	channels map[string]ports.Channel
	sent     []sentMessage
	created  int
	deleted  []string
	users    map[string]ports.User

	createErr  error
	deleteErr  error
	sendErr    map[string]error // by channel id
	createWait time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels: make(map[string]ports.Channel),
		sendErr:  make(map[string]error),
		users:    make(map[string]ports.User),
	}
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID, text string, attachments []ports.Attachment) (ports.MessageHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.sendErr[channelID]; err != nil {
		return ports.MessageHandle{}, err
	}
	g.nextID++
	g.sent = append(g.sent, sentMessage{channelID: channelID, text: text, attachments: len(attachments)})
	return ports.MessageHandle{ID: fmt.Sprintf("m%d", g.nextID), ChannelID: channelID}, nil
}

func (g *fakeGateway) CreatePrivateChannel(_ context.Context, parentID, name, _ string) (ports.Channel, error) {
	if g.createWait > 0 {
		time.Sleep(g.createWait)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return ports.Channel{}, g.createErr
	}
	g.nextID++
	g.created++
	ch := ports.Channel{ID: fmt.Sprintf("c%d", g.nextID), Name: name, ParentID: parentID}
	g.channels[ch.ID] = ch
	return ch, nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	if _, ok := g.channels[channelID]; !ok {
		return ports.ErrNotFound
	}
	delete(g.channels, channelID)
	g.deleted = append(g.deleted, channelID)
	return nil
}

func (g *fakeGateway) FetchUser(_ context.Context, userID string) (*ports.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (g *fakeGateway) ListChildChannels(_ context.Context, parentID string) ([]ports.Channel, error) {
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

func (g *fakeGateway) addChannel(ch ports.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.ID] = ch
}

func (g *fakeGateway) openChannels() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.channels)
}

func (g *fakeGateway) messagesTo(channelID string) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMessage
	for _, m := range g.sent {
		if m.channelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ string, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts)
}

type fakeAudit struct {
	mu     sync.Mutex
	events []ports.AuditEvent
}

func (a *fakeAudit) Record(_ context.Context, ev ports.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *fakeAudit) kinds() []model.EventKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.EventKind, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (a *fakeAudit) last(kind model.EventKind) (ports.AuditEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.events) - 1; i >= 0; i-- {
		if a.events[i].Kind == kind {
			return a.events[i], true
		}
	}
	return ports.AuditEvent{}, false
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errPlatform = errors.New("platform unavailable")

const (
	testCategory = "cat-1"
	testButtons  = "buttons"
	testReports  = "reports"
	testAdmin    = "admin-1"
)

type harness struct {
	gw       *fakeGateway
	notifier *fakeNotifier
	audit    *fakeAudit
	clock    *fakeClock
	store    *MemoryStore
	ws       *WorkspaceManager
	svc      *SessionService
}

func newHarness() *harness {
	h := &harness{
		gw:       newFakeGateway(),
		notifier: &fakeNotifier{},
		audit:    &fakeAudit{},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		store:    NewMemoryStore(),
	}
	h.ws = NewWorkspaceManager(h.gw, h.audit, testCategory)
	h.svc = NewSessionService(h.store, h.ws, h.gw, h.notifier, h.audit, Options{
		AdminUserID:      testAdmin,
		ButtonChannelID:  testButtons,
		ReportsChannelID: testReports,
		Now:              h.clock.Now,
	})
	return h
}

func reportMsg(user ports.User, channelID, content string, attachments int) ports.Message {
	msg := ports.Message{
		ID:        "msg-1",
		ChannelID: channelID,
		Author:    user,
		Content:   content,
		JumpURL:   "https://discord.com/channels/g/" + channelID + "/msg-1",
	}
	for i := 0; i < attachments; i++ {
		msg.Attachments = append(msg.Attachments, ports.Attachment{Filename: fmt.Sprintf("f%d.png", i), URL: "https://cdn/f.png"})
	}
	return msg
}
