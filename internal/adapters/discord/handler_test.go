package discord

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"github.com/bwmarrin/discordgo"
)

func buttonInteraction(customID string, member *discordgo.Member) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Data:   discordgo.MessageComponentInteractionData{CustomID: customID},
		Member: member,
	}
}

func alice() *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: "42", Username: "alice"}}
}

func TestParse_Buttons(t *testing.T) {
	h := NewHandler(&fakeController{}, "")

	req, ok := h.parse(buttonInteraction(ClockInButtonID, alice()))
	if !ok || req.name != ClockInButtonID || req.user.ID != "42" || req.user.Name != "alice" {
		t.Errorf("unexpected request %+v ok=%v", req, ok)
	}
	if _, ok := h.parse(buttonInteraction("something_else", alice())); ok {
		t.Error("unknown buttons must be ignored")
	}
	if _, ok := h.parse(buttonInteraction(ClockOutButtonID, nil)); ok {
		t.Error("interactions without a user must be ignored")
	}
}

func TestParse_ResetCommand(t *testing.T) {
	h := NewHandler(&fakeController{}, "role-reset")

	i := &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: ResetCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "77"},
			},
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Users: map[string]*discordgo.User{"77": {ID: "77", Username: "bob"}},
			},
		},
		Member: &discordgo.Member{User: &discordgo.User{ID: "1", Username: "mod"}, Roles: []string{"role-reset"}},
	}

	req, ok := h.parse(i)
	if !ok {
		t.Fatal("expected /reset to parse")
	}
	if req.target.ID != "77" || req.target.Name != "bob" {
		t.Errorf("unexpected target %+v", req.target)
	}
	if !req.privileged {
		t.Error("reset role must grant the privilege")
	}
}

func TestParse_ResetUnresolvedTarget(t *testing.T) {
	h := NewHandler(&fakeController{}, "")
	i := &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: ResetCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "77"},
			},
		},
		Member: alice(),
	}
	req, ok := h.parse(i)
	if !ok || req.target.ID != "77" || req.target.Name != "" {
		t.Errorf("expected id-only target, got %+v ok=%v", req.target, ok)
	}
}

func TestPrivileged(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		member *discordgo.Member
		want   bool
	}{
		{"administrator", "", &discordgo.Member{Permissions: discordgo.PermissionAdministrator}, true},
		{"reset role", "r1", &discordgo.Member{Roles: []string{"r0", "r1"}}, true},
		{"other role", "r1", &discordgo.Member{Roles: []string{"r2"}}, false},
		{"no role configured", "", &discordgo.Member{Roles: []string{""}}, false},
		{"direct message", "r1", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeController{}, tt.role)
			if got := h.privileged(&discordgo.Interaction{Member: tt.member}); got != tt.want {
				t.Errorf("privileged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	user := ports.User{ID: "42", Name: "alice"}

	t.Run("clock in reply", func(t *testing.T) {
		svc := &fakeController{outcome: core.Outcome{Reply: "You have clocked in!"}}
		got := NewHandler(svc, "").dispatch(context.Background(), request{name: ClockInButtonID, user: user})
		if got != "You have clocked in!" || svc.calls[0] != "clock-in:42" {
			t.Errorf("got %q calls %v", got, svc.calls)
		}
	})

	t.Run("guard violation", func(t *testing.T) {
		svc := &fakeController{err: core.ErrReportRequired}
		got := NewHandler(svc, "").dispatch(context.Background(), request{name: ClockOutButtonID, user: user})
		if got != "<@42>, please submit a status report in your private status channel." {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("workspace failure", func(t *testing.T) {
		svc := &fakeController{err: fmt.Errorf("%w: boom", core.ErrWorkspace)}
		got := NewHandler(svc, "").dispatch(context.Background(), request{name: ClockInButtonID, user: user})
		if !strings.Contains(got, "contact an admin") {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("checkstate", func(t *testing.T) {
		svc := &fakeController{record: model.PendingReport(time.Now())}
		got := NewHandler(svc, "").dispatch(context.Background(), request{name: CheckStateCommand, user: user})
		if got != "Clocked in: true, Clock out enabled: false" {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("reset forwards privilege", func(t *testing.T) {
		svc := &fakeController{outcome: core.Outcome{Reply: "ok"}}
		target := ports.User{ID: "77"}
		NewHandler(svc, "").dispatch(context.Background(), request{name: ResetCommand, user: user, privileged: true, target: target})
		if !svc.priv || svc.actor != user || svc.target != target {
			t.Errorf("unexpected reset call actor=%+v priv=%v target=%+v", svc.actor, svc.priv, svc.target)
		}
	})
}

func TestOnMessage(t *testing.T) {
	svc := &fakeController{}
	h := NewHandler(svc, "")

	h.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m1", ChannelID: "c1", Content: "Status Report done",
		Author: &discordgo.User{ID: "9", Username: "bot", Bot: true},
	}})
	if len(svc.msgs) != 0 {
		t.Fatal("bot messages must be ignored")
	}

	h.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m2", ChannelID: "c1", GuildID: "g1", Content: "Status Report done",
		Author:      &discordgo.User{ID: "42", Username: "alice"},
		Attachments: []*discordgo.MessageAttachment{{Filename: "a.png", URL: "https://cdn/a.png", ContentType: "image/png", Size: 10}},
	}})
	if len(svc.msgs) != 1 {
		t.Fatalf("expected message forwarded, got %d", len(svc.msgs))
	}
	msg := svc.msgs[0]
	if msg.Author.ID != "42" || len(msg.Attachments) != 1 || msg.JumpURL != "https://discord.com/channels/g1/c1/m2" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestOnMessage_RecoversPanic(t *testing.T) {
	h := NewHandler(nil, "")
	// A nil controller panics inside the handler; the panic must not escape.
	h.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m", ChannelID: "c", Author: &discordgo.User{ID: "42"},
	}})
}
