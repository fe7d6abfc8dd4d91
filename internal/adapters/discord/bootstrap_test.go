package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
)

type fakeSurface struct {
	channels   map[string]bool
	posted     []string
	commandErr error
}

func (f *fakeSurface) RegisterCommands(context.Context) (int, error) {
	if f.commandErr != nil {
		return 0, f.commandErr
	}
	return len(Commands()), nil
}

func (f *fakeSurface) ChannelExists(_ context.Context, id string) (bool, error) {
	return f.channels[id], nil
}

func (f *fakeSurface) PostControls(_ context.Context, channelID, text string) (ports.MessageHandle, error) {
	f.posted = append(f.posted, channelID)
	return ports.MessageHandle{ID: "m", ChannelID: channelID}, nil
}

type fakeReconciler struct {
	calls   int
	deleted int
	err     error
}

func (f *fakeReconciler) Reconcile(context.Context) (int, error) {
	f.calls++
	return f.deleted, f.err
}

func newBootstrap(surface *fakeSurface, rec *fakeReconciler, reconcile bool) (*Bootstrap, *fakeAudit, *fakeNotifier) {
	audit, notifier := &fakeAudit{}, &fakeNotifier{}
	b := NewBootstrap(surface, rec, audit, notifier, BootstrapOptions{
		AdminUserID:      "admin",
		ButtonChannelID:  "buttons",
		LogChannelID:     "log",
		ReconcileOnStart: reconcile,
		Now:              func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	return b, audit, notifier
}

func TestBootstrap_Run(t *testing.T) {
	surface := &fakeSurface{channels: map[string]bool{"buttons": true, "log": true}}
	rec := &fakeReconciler{deleted: 2}
	b, audit, notifier := newBootstrap(surface, rec, true)

	if err := b.Run(context.Background(), ports.User{ID: "1", Name: "AttendanceBot"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(surface.posted) != 1 || surface.posted[0] != "buttons" {
		t.Errorf("expected buttons posted once, got %v", surface.posted)
	}
	if len(audit.events) != 1 || audit.events[0].Kind != model.EventStartup || audit.events[0].UserName != "AttendanceBot" {
		t.Errorf("expected startup event, got %+v", audit.events)
	}
	if rec.calls != 1 {
		t.Errorf("expected reconciliation, got %d calls", rec.calls)
	}
	if len(notifier.texts) != 0 {
		t.Errorf("unexpected admin notifications %v", notifier.texts)
	}
}

func TestBootstrap_MissingChannels(t *testing.T) {
	surface := &fakeSurface{channels: map[string]bool{}}
	rec := &fakeReconciler{}
	b, audit, notifier := newBootstrap(surface, rec, false)

	err := b.Run(context.Background(), ports.User{ID: "1", Name: "AttendanceBot"})
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(surface.posted) != 0 {
		t.Error("nothing can be posted without a button channel")
	}
	want := []string{"Error: Could not find button channel buttons", "Error: Could not find log channel log"}
	if len(notifier.texts) != 2 || notifier.texts[0] != want[0] || notifier.texts[1] != want[1] {
		t.Errorf("unexpected notifications %v", notifier.texts)
	}
	if len(audit.events) != 1 {
		t.Error("startup must still be audited")
	}
	if rec.calls != 0 {
		t.Error("reconciliation is disabled")
	}
}

func TestBootstrap_CommandAndReconcileErrors(t *testing.T) {
	surface := &fakeSurface{channels: map[string]bool{"buttons": true, "log": true}, commandErr: errors.New("401")}
	rec := &fakeReconciler{err: errors.New("forbidden")}
	b, _, notifier := newBootstrap(surface, rec, true)

	if err := b.Run(context.Background(), ports.User{ID: "1"}); err == nil {
		t.Fatal("expected joined error")
	}
	if len(notifier.texts) != 2 {
		t.Errorf("expected two notifications, got %v", notifier.texts)
	}
	if len(surface.posted) != 1 {
		t.Error("buttons should still be posted")
	}
}
