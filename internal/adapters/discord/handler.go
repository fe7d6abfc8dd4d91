package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"attendance.service/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	ClockInButtonID   = "clock_in_button"
	ClockOutButtonID  = "clock_out_button"
	CheckStateCommand = "checkstate"
	ResetCommand      = "reset"
)

// interactionTimeout bounds one interaction; the follow-up token itself
// stays valid for 15 minutes.
const interactionTimeout = 2 * time.Minute

// Controller is the attendance service as seen by the control surface.
type Controller interface {
	ClockIn(ctx context.Context, user ports.User) (core.Outcome, error)
	ClockOut(ctx context.Context, user ports.User) (core.Outcome, error)
	HandleMessage(ctx context.Context, msg ports.Message) (bool, error)
	Reset(ctx context.Context, actor ports.User, privileged bool, target ports.User) (core.Outcome, error)
	State(ctx context.Context, userID string) model.AttendanceRecord
}

// Handler routes Discord events to the controller.
type Handler struct {
	svc         Controller
	resetRoleID string
}

func NewHandler(svc Controller, resetRoleID string) *Handler {
	return &Handler{svc: svc, resetRoleID: resetRoleID}
}

// Register attaches the handler to the session's event stream.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.onInteraction)
	s.AddHandler(h.onMessage)
}

// request is a parsed interaction.
type request struct {
	name       string
	user       ports.User
	privileged bool
	target     ports.User
}

func (h *Handler) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	defer recoverHandler("interaction")

	req, ok := h.parse(ic.Interaction)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	ctx = logger.WithFields(ctx, "user_id", req.user.ID, "interaction", req.name)

	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to acknowledge interaction")
		return
	}

	reply := h.dispatch(ctx, req)

	if _, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: truncate(reply, maxMessageLength),
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx)); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to send interaction reply")
	}
}

func (h *Handler) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	defer recoverHandler("message")

	if m.Author == nil || m.Author.Bot {
		return
	}

	ctx := logger.WithFields(context.Background(), "user_id", m.Author.ID, "channel_id", m.ChannelID)
	handled, err := h.svc.HandleMessage(ctx, toMessage(m.Message))
	switch {
	case err == nil:
		if handled {
			log.Ctx(ctx).Debug().Msg("Report channel message handled")
		}
	case errors.Is(err, core.ErrValidationRejected):
		// already answered in the channel
	default:
		log.Ctx(ctx).Error().Err(err).Msg("Failed to handle report channel message")
	}
}

// parse extracts the invoking user and arguments of the interactions the
// bot answers.
func (h *Handler) parse(i *discordgo.Interaction) (request, bool) {
	u := interactionUser(i)
	if u == nil {
		return request{}, false
	}
	req := request{user: toUser(u), privileged: h.privileged(i)}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		req.name = i.MessageComponentData().CustomID
		if req.name != ClockInButtonID && req.name != ClockOutButtonID {
			return request{}, false
		}
		return req, true

	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		req.name = data.Name
		switch data.Name {
		case CheckStateCommand:
			return req, true
		case ResetCommand:
			target, ok := resetTarget(data)
			if !ok {
				return request{}, false
			}
			req.target = target
			return req, true
		}
	}
	return request{}, false
}

// privileged reports whether the member may use /reset.
func (h *Handler) privileged(i *discordgo.Interaction) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return h.resetRoleID != "" && slices.Contains(i.Member.Roles, h.resetRoleID)
}

func resetTarget(data discordgo.ApplicationCommandInteractionData) (ports.User, bool) {
	for _, opt := range data.Options {
		if opt == nil || opt.Type != discordgo.ApplicationCommandOptionUser {
			continue
		}
		id, _ := opt.Value.(string)
		if id == "" {
			return ports.User{}, false
		}
		if data.Resolved != nil {
			if u, ok := data.Resolved.Users[id]; ok && u != nil {
				return toUser(u), true
			}
		}
		// Name left empty; the controller looks the user up.
		return ports.User{ID: id}, true
	}
	return ports.User{}, false
}

func (h *Handler) dispatch(ctx context.Context, req request) string {
	var (
		out core.Outcome
		err error
	)
	switch req.name {
	case ClockInButtonID:
		out, err = h.svc.ClockIn(ctx, req.user)
	case ClockOutButtonID:
		out, err = h.svc.ClockOut(ctx, req.user)
	case CheckStateCommand:
		rec := h.svc.State(ctx, req.user.ID)
		return fmt.Sprintf("Clocked in: %t, Clock out enabled: %t", rec.ClockedIn(), rec.ReportApproved())
	case ResetCommand:
		out, err = h.svc.Reset(ctx, req.user, req.privileged, req.target)
	default:
		return ""
	}

	if err != nil {
		if !errors.Is(err, core.ErrGuardViolation) {
			log.Ctx(ctx).Error().Err(err).Msg("Attendance request failed")
		}
		return core.UserMessage(err, req.user.Mention())
	}
	return out.Reply
}

func recoverHandler(kind string) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("handler", kind).Msg("Recovered from panic in event handler")
	}
}
