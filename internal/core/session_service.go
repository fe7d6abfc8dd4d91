package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options carries the channels and recipients the controller talks to.
type Options struct {
	AdminUserID      string
	ButtonChannelID  string
	ReportsChannelID string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome is what a successful operation reports back to the control surface.
type Outcome struct {
	Reply     string
	Record    model.AttendanceRecord
	Workspace *ports.Channel
	Hours     int64
	Minutes   int64
}

// SessionService is the attendance state machine. All transitions of one
// user run one at a time, in arrival order.
type SessionService struct {
	store      AttendanceStore
	workspaces *WorkspaceManager
	gateway    ports.ChatGateway
	notifier   ports.AdminNotifier
	audit      ports.AuditLog
	opts       Options
	locks      *userLocks
}

// NewSessionService wires the controller to its store and collaborators.
func NewSessionService(store AttendanceStore, workspaces *WorkspaceManager, gateway ports.ChatGateway,
	notifier ports.AdminNotifier, audit ports.AuditLog, opts Options) *SessionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	workspaces.now = opts.Now
	return &SessionService{
		store:      store,
		workspaces: workspaces,
		gateway:    gateway,
		notifier:   notifier,
		audit:      audit,
		opts:       opts,
		locks:      newUserLocks(),
	}
}

// run is the working state of one transition.
type run struct {
	trigger   trigger
	user      ports.User
	actor     ports.User
	msg       *ports.Message
	report    string
	from      model.AttendanceRecord
	plan      plan
	workspace ports.Channel
	closedOld bool
}

// ClockIn starts a session and opens the user's report channel.
func (s *SessionService) ClockIn(ctx context.Context, user ports.User) (Outcome, error) {
	ctx, span := s.startSpan(ctx, "clock_in", user.ID)
	defer span.End()

	var out Outcome
	err := s.withUser(ctx, user.ID, func() error {
		r := &run{trigger: triggerClockIn, user: user, actor: user}
		if err := s.transition(ctx, r); err != nil {
			return err
		}
		ws := r.workspace
		out = Outcome{
			Reply: fmt.Sprintf("You have clocked in! Please submit a Status Report with an attachment in your private status channel: %s.",
				ws.Mention()),
			Record:    r.plan.next,
			Workspace: &ws,
		}
		return nil
	})
	return out, s.finish(ctx, span, user, err)
}

// ClockOut ends a session once a report was accepted.
func (s *SessionService) ClockOut(ctx context.Context, user ports.User) (Outcome, error) {
	ctx, span := s.startSpan(ctx, "clock_out", user.ID)
	defer span.End()

	var out Outcome
	err := s.withUser(ctx, user.ID, func() error {
		r := &run{trigger: triggerClockOut, user: user, actor: user}
		if err := s.transition(ctx, r); err != nil {
			return err
		}
		out = Outcome{
			Reply:   fmt.Sprintf("You have clocked out! Session length: %s.", FormatElapsed(r.plan.hours, r.plan.minutes)),
			Record:  r.plan.next,
			Hours:   r.plan.hours,
			Minutes: r.plan.minutes,
		}
		return nil
	})
	return out, s.finish(ctx, span, user, err)
}

// HandleMessage inspects a message posted in the author's report channel.
// It reports false for messages that are not in a bound report channel. A
// rejected report is answered in the channel and returns ErrValidationRejected.
func (s *SessionService) HandleMessage(ctx context.Context, msg ports.Message) (bool, error) {
	if ch, ok := s.workspaces.Binding(msg.Author.ID); !ok || ch.ID != msg.ChannelID {
		return false, nil
	}

	ctx, span := s.startSpan(ctx, "handle_report", msg.Author.ID)
	defer span.End()

	handled := false
	err := s.withUser(ctx, msg.Author.ID, func() error {
		// The binding may have changed while waiting for the lock.
		if ch, ok := s.workspaces.Binding(msg.Author.ID); !ok || ch.ID != msg.ChannelID {
			return nil
		}
		handled = true

		body, verr := ValidateReport(msg)
		r := &run{trigger: triggerReport, user: msg.Author, actor: msg.Author, msg: &msg, report: body}
		if verr != nil {
			r.trigger = triggerBadReport
		}
		if err := s.transition(ctx, r); err != nil {
			return err
		}
		return verr
	})
	return handled, s.finish(ctx, span, msg.Author, err)
}

// Reset force-starts a session for target that can end without a report.
// The actor must hold the reset privilege.
func (s *SessionService) Reset(ctx context.Context, actor ports.User, privileged bool, target ports.User) (Outcome, error) {
	ctx, span := s.startSpan(ctx, "reset", target.ID)
	defer span.End()
	span.SetAttributes(attribute.String("app.actorId", actor.ID))

	if !privileged {
		return Outcome{}, s.finish(ctx, span, actor, ErrNotAuthorized)
	}

	if target.Name == "" {
		u, err := s.gateway.FetchUser(ctx, target.ID)
		if err != nil {
			return Outcome{}, s.finish(ctx, span, target, fmt.Errorf("fetching user %s: %w", target.ID, err))
		}
		if u == nil {
			return Outcome{}, s.finish(ctx, span, target, fmt.Errorf("%w: unknown user %s", ErrGuardViolation, target.ID))
		}
		target = *u
	}

	var out Outcome
	err := s.withUser(ctx, target.ID, func() error {
		r := &run{trigger: triggerReset, user: target, actor: actor}
		if err := s.transition(ctx, r); err != nil {
			return err
		}
		ws := r.workspace
		out = Outcome{
			Reply: fmt.Sprintf("%s has been clocked in via /reset! They can clock out without a report in their private status channel: %s.",
				target.Mention(), ws.Mention()),
			Record:    r.plan.next,
			Workspace: &ws,
		}
		return nil
	})
	return out, s.finish(ctx, span, target, err)
}

// State returns the user's current attendance record.
func (s *SessionService) State(_ context.Context, userID string) model.AttendanceRecord {
	return s.store.Get(userID)
}

// Workspace returns the report channel currently bound to userID.
func (s *SessionService) Workspace(userID string) (ports.Channel, bool) {
	return s.workspaces.Binding(userID)
}

// ActiveSessions returns the number of users currently clocked in.
func (s *SessionService) ActiveSessions() int {
	return s.store.Len()
}

// transition decides and executes one state change. Must be called with the
// user's lock held.
func (s *SessionService) transition(ctx context.Context, r *run) error {
	r.from = s.store.Get(r.user.ID)
	p, err := decide(r.from, r.trigger, s.opts.Now())
	if err != nil {
		return err
	}
	r.plan = p

	for _, e := range p.before {
		if err := s.apply(ctx, r, e); err != nil {
			s.escalate(ctx, r, e, err)
			if e.required() {
				s.rollback(ctx, r)
				return err
			}
		}
	}

	s.store.Put(r.user.ID, p.next)
	log.Ctx(ctx).Info().
		Str("user_id", r.user.ID).
		Str("from", r.from.State.String()).
		Str("to", p.next.State.String()).
		Msg("Attendance transition committed")

	if p.event != "" {
		s.audit.Record(ctx, newAuditEvent(p.event, r.user, s.opts.Now(), s.eventDetails(r)))
	}

	for _, e := range p.after {
		if err := s.apply(ctx, r, e); err != nil {
			s.escalate(ctx, r, e, err)
		}
	}
	return nil
}

// rollback restores the pre-transition record, or OUT when the transition
// already removed the user's old channel.
func (s *SessionService) rollback(ctx context.Context, r *run) {
	rec := r.from
	if r.closedOld {
		rec = model.Out()
	}
	s.store.Put(r.user.ID, rec)
	log.Ctx(ctx).Warn().Str("user_id", r.user.ID).Str("state", rec.State.String()).Msg("Attendance transition rolled back")
}

func (s *SessionService) apply(ctx context.Context, r *run, e effect) error {
	switch e {
	case effectOpenWorkspace:
		ch, err := s.workspaces.Open(ctx, r.user)
		if err != nil {
			return err
		}
		r.workspace = ch
		return nil

	case effectCloseWorkspace:
		_, had := s.workspaces.Binding(r.user.ID)
		err := s.workspaces.Close(ctx, r.user, s.closeReason(r))
		if had {
			r.closedOld = true
		}
		return err

	case effectPostInstructions:
		text := fmt.Sprintf("%s, please submit your report here. Make sure your report must start with '%s' (case sensitive) and it must have at least one attachment.",
			r.user.Mention(), ReportMarker)
		if r.trigger == triggerReset {
			text = fmt.Sprintf("%s, you have been clocked in via /reset by %s. You can clock out without submitting a report for this session. Optionally, submit a Status Report with an attachment if desired.",
				r.user.Mention(), r.actor.Mention())
		}
		_, err := s.gateway.SendMessage(ctx, r.workspace.ID, text, nil)
		return err

	case effectForwardReport:
		if s.opts.ReportsChannelID == "" {
			return fmt.Errorf("%w: no update reports channel configured", ErrConfiguration)
		}
		text := fmt.Sprintf("Status Report from %s: %s", r.user.Mention(), r.report)
		_, err := s.gateway.SendMessage(ctx, s.opts.ReportsChannelID, text, r.msg.Attachments)
		return err

	case effectAnnounceReport:
		if s.opts.ButtonChannelID == "" {
			return fmt.Errorf("%w: no button channel configured", ErrConfiguration)
		}
		text := fmt.Sprintf("%s you can now clockout\n> %s\n(Message link: %s)", r.user.Mention(), r.msg.Content, r.msg.JumpURL)
		_, err := s.gateway.SendMessage(ctx, s.opts.ButtonChannelID, text, nil)
		return err

	case effectFormatHelp:
		_, err := s.gateway.SendMessage(ctx, r.msg.ChannelID, msgFormatHelp, nil)
		return err
	}
	return fmt.Errorf("unknown effect %d", e)
}

func (s *SessionService) closeReason(r *run) string {
	switch r.trigger {
	case triggerClockOut:
		return "clock-out"
	case triggerReport:
		return "report submitted"
	case triggerReset:
		return "/reset by " + r.actor.Name
	default:
		return ""
	}
}

func (s *SessionService) eventDetails(r *run) map[string]string {
	switch r.trigger {
	case triggerClockIn:
		return map[string]string{"channel": r.workspace.Name, "channelId": r.workspace.ID}
	case triggerClockOut:
		return map[string]string{
			"hours":   strconv.FormatInt(r.plan.hours, 10),
			"minutes": strconv.FormatInt(r.plan.minutes, 10),
		}
	case triggerReport:
		return map[string]string{
			"attachments": strconv.Itoa(len(r.msg.Attachments)),
			"content":     r.msg.Content,
			"messageUrl":  r.msg.JumpURL,
		}
	case triggerReset:
		return map[string]string{"by": r.actor.Name, "byId": r.actor.ID, "channel": r.workspace.Name}
	}
	return nil
}

// escalate logs an effect failure and reports it to the admin.
func (s *SessionService) escalate(ctx context.Context, r *run, e effect, err error) {
	text := fmt.Sprintf("Error %s for %s (ID: %s): %v", e, r.user.Name, r.user.ID, err)
	if r.trigger == triggerReset {
		text += " during /reset by " + r.actor.Name
	}
	log.Ctx(ctx).Error().Err(err).Str("user_id", r.user.ID).Str("effect", e.String()).Msg("Attendance side effect failed")
	s.notifier.Notify(ctx, s.opts.AdminUserID, text)
}

func (s *SessionService) withUser(ctx context.Context, userID string, fn func() error) error {
	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return fmt.Errorf("waiting for user %s: %w", userID, err)
	}
	defer release()
	return fn()
}

func (s *SessionService) startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("session-controller").Start(ctx, name,
		trace.WithAttributes(attribute.String("app.userId", userID)))
	return ctx, span
}

// finish records the operation result on the span and the log.
func (s *SessionService) finish(ctx context.Context, span trace.Span, user ports.User, err error) error {
	switch {
	case err == nil:
	case errors.Is(err, ErrGuardViolation), errors.Is(err, ErrValidationRejected):
		span.SetAttributes(attribute.String("app.rejected", err.Error()))
		log.Ctx(ctx).Debug().Str("user_id", user.ID).Err(err).Msg("Attendance request rejected")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// FormatElapsed renders a session length as "<h> hours, <m> minutes".
func FormatElapsed(hours, minutes int64) string {
	return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
}
