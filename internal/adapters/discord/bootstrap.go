package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"attendance.service/internal/core"
	"attendance.service/internal/ports"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Instructions is posted above the clock buttons.
const Instructions = "Use the buttons to clock in or out!\n" +
	"**Instructions:**\n" +
	"1. Click 'Clock In' to start your session.\n" +
	"2. A private status channel (report-001-[suffix]) will be created for you in the designated category.\n" +
	"3. Submit a Status Report with an attachment in your private channel (must start with 'Status Report', case sensitive).\n" +
	"4. After submitting, your report will be copied to the update reports channel, and your private channel will be deleted.\n" +
	"5. Click 'Clock Out' to end your session.\n" +
	"6. Use `/checkstate` to check your clock-in status (works in any channel, including your private status channel).\n" +
	"7. Use `/reset @user` to clock in any user without needing a status report (one-time bypass).\n"

type controlSurface interface {
	RegisterCommands(ctx context.Context) (int, error)
	ChannelExists(ctx context.Context, channelID string) (bool, error)
	PostControls(ctx context.Context, channelID, text string) (ports.MessageHandle, error)
}

type reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

type BootstrapOptions struct {
	AdminUserID      string
	ButtonChannelID  string
	LogChannelID     string
	ReconcileOnStart bool
	Now              func() time.Time
}

// Bootstrap prepares the guild once the session is ready.
type Bootstrap struct {
	surface    controlSurface
	workspaces reconciler
	audit      ports.AuditLog
	notifier   ports.AdminNotifier
	opts       BootstrapOptions
	once       sync.Once
}

func NewBootstrap(surface controlSurface, workspaces reconciler, audit ports.AuditLog, notifier ports.AdminNotifier, opts BootstrapOptions) *Bootstrap {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Bootstrap{surface: surface, workspaces: workspaces, audit: audit, notifier: notifier, opts: opts}
}

// OnReady runs Run for the first Ready event of the session. Reconnects
// that identify again do not post the buttons twice.
func (b *Bootstrap) OnReady(ctx context.Context) func(*discordgo.Session, *discordgo.Ready) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		b.once.Do(func() {
			defer recoverHandler("ready")
			if err := b.Run(ctx, toUser(r.User)); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("Startup finished with problems")
			}
		})
	}
}

// Run registers the commands, posts the instructions, audits the startup and
// removes orphan report channels. Problems are reported to the admin and
// returned joined; none of them stops the bot.
func (b *Bootstrap) Run(ctx context.Context, bot ports.User) error {
	log.Ctx(ctx).Info().Str("bot", bot.Name).Str("bot_id", bot.ID).Msg("Logged in")

	var errs []error
	fail := func(err error, text string) {
		errs = append(errs, err)
		log.Ctx(ctx).Error().Err(err).Msg(text)
		b.notifier.Notify(ctx, b.opts.AdminUserID, text)
	}

	if n, err := b.surface.RegisterCommands(ctx); err != nil {
		fail(err, fmt.Sprintf("Error during startup: registering commands: %v", err))
	} else {
		log.Ctx(ctx).Info().Int("count", n).Msg("Synced commands")
	}

	if ok, err := b.surface.ChannelExists(ctx, b.opts.ButtonChannelID); err != nil {
		fail(err, fmt.Sprintf("Error during startup: %v", err))
	} else if !ok {
		fail(fmt.Errorf("%w: button channel %s not found", core.ErrConfiguration, b.opts.ButtonChannelID),
			fmt.Sprintf("Error: Could not find button channel %s", b.opts.ButtonChannelID))
	} else if _, err := b.surface.PostControls(ctx, b.opts.ButtonChannelID, Instructions); err != nil {
		fail(err, fmt.Sprintf("Error during startup: posting buttons: %v", err))
	}

	if ok, err := b.surface.ChannelExists(ctx, b.opts.LogChannelID); err != nil {
		fail(err, fmt.Sprintf("Error during startup: %v", err))
	} else if !ok {
		fail(fmt.Errorf("%w: log channel %s not found", core.ErrConfiguration, b.opts.LogChannelID),
			fmt.Sprintf("Error: Could not find log channel %s", b.opts.LogChannelID))
	}

	b.audit.Record(ctx, core.StartupEvent(bot, b.opts.Now()))

	if b.opts.ReconcileOnStart {
		n, err := b.workspaces.Reconcile(ctx)
		if err != nil {
			fail(err, fmt.Sprintf("Error removing leftover private channels: %v", err))
		}
		if n > 0 {
			log.Ctx(ctx).Info().Int("deleted", n).Msg("Removed leftover report channels")
		}
	}

	return errors.Join(errs...)
}
