package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"github.com/rs/zerolog/log"
)

// WorkspacePrefix starts the name of every report channel.
const WorkspacePrefix = "report-001-"

// WorkspaceName returns the channel name for a user's workspace: the prefix
// followed by the last four characters of the user id.
func WorkspaceName(userID string) string {
	suffix := userID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return WorkspacePrefix + suffix
}

// WorkspaceManager owns the mapping between an active session and its
// private report channel.
type WorkspaceManager struct {
	gateway  ports.ChatGateway
	audit    ports.AuditLog
	parentID string
	now      func() time.Time

	mu       sync.Mutex
	bindings map[string]ports.Channel
}

// NewWorkspaceManager creates a manager that opens channels under parentID.
func NewWorkspaceManager(gateway ports.ChatGateway, audit ports.AuditLog, parentID string) *WorkspaceManager {
	return &WorkspaceManager{
		gateway:  gateway,
		audit:    audit,
		parentID: parentID,
		now:      time.Now,
		bindings: make(map[string]ports.Channel),
	}
}

// Open creates the user's private channel and binds it. Nothing is bound
// when it fails.
func (m *WorkspaceManager) Open(ctx context.Context, user ports.User) (ports.Channel, error) {
	if m.parentID == "" {
		return ports.Channel{}, fmt.Errorf("%w: no category configured for private channels", ErrConfiguration)
	}
	if _, ok := m.Binding(user.ID); ok {
		return ports.Channel{}, fmt.Errorf("%w: user %s already has a private channel", ErrWorkspace, user.ID)
	}

	ch, err := m.gateway.CreatePrivateChannel(ctx, m.parentID, WorkspaceName(user.ID), user.ID)
	if errors.Is(err, ports.ErrParentNotFound) {
		return ports.Channel{}, fmt.Errorf("%w: category %s not found: %w", ErrConfiguration, m.parentID, err)
	}
	if err != nil {
		return ports.Channel{}, fmt.Errorf("%w: creating private channel in category %s: %w", ErrWorkspace, m.parentID, err)
	}

	m.mu.Lock()
	m.bindings[user.ID] = ch
	m.mu.Unlock()

	return ch, nil
}

// Close deletes the user's channel if one is bound. Closing an unbound user
// is a no-op. The binding is dropped even when the delete fails.
func (m *WorkspaceManager) Close(ctx context.Context, user ports.User, reason string) error {
	m.mu.Lock()
	ch, ok := m.bindings[user.ID]
	delete(m.bindings, user.ID)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	err := m.gateway.DeleteChannel(ctx, ch.ID)
	if errors.Is(err, ports.ErrNotFound) {
		err = nil
	}

	details := map[string]string{
		"channel":   ch.Name,
		"channelId": ch.ID,
		"category":  m.parentID,
		"reason":    reason,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	m.audit.Record(ctx, newAuditEvent(model.EventWorkspaceDeleted, user, m.now(), details))

	if err != nil {
		return fmt.Errorf("%w: deleting private channel %s: %w", ErrWorkspace, ch.ID, err)
	}
	return nil
}

// Binding returns the channel bound to userID.
func (m *WorkspaceManager) Binding(userID string) (ports.Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.bindings[userID]
	return ch, ok
}

// Reconcile deletes report channels left under the category by a previous
// process. Bound channels are kept. It returns the number of channels deleted.
func (m *WorkspaceManager) Reconcile(ctx context.Context) (int, error) {
	if m.parentID == "" {
		return 0, fmt.Errorf("%w: no category configured for private channels", ErrConfiguration)
	}

	children, err := m.gateway.ListChildChannels(ctx, m.parentID)
	if errors.Is(err, ports.ErrParentNotFound) {
		return 0, fmt.Errorf("%w: category %s not found: %w", ErrConfiguration, m.parentID, err)
	}
	if err != nil {
		return 0, fmt.Errorf("listing channels in category %s: %w", m.parentID, err)
	}

	bound := make(map[string]bool)
	m.mu.Lock()
	for _, ch := range m.bindings {
		bound[ch.ID] = true
	}
	m.mu.Unlock()

	var (
		deleted int
		errs    []error
	)
	for _, ch := range children {
		if !strings.HasPrefix(ch.Name, WorkspacePrefix) || bound[ch.ID] {
			continue
		}
		if err := m.gateway.DeleteChannel(ctx, ch.ID); err != nil && !errors.Is(err, ports.ErrNotFound) {
			errs = append(errs, fmt.Errorf("deleting orphan channel %s: %w", ch.Name, err))
			continue
		}
		log.Ctx(ctx).Info().Str("channel", ch.Name).Str("channel_id", ch.ID).Msg("Deleted orphan report channel")
		deleted++
	}

	return deleted, errors.Join(errs...)
}
