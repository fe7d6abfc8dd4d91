package ports

import (
	"context"
)

type notifiers []AdminNotifier

// Notifiers combines several notifiers; each one is called in order.
func Notifiers(n ...AdminNotifier) AdminNotifier {
	out := make(notifiers, 0, len(n))
	for _, x := range n {
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

func (n notifiers) Notify(ctx context.Context, adminUserID, text string) {
	for _, x := range n {
		x.Notify(ctx, adminUserID, text)
	}
}

type auditLogs []AuditLog

// AuditLogs combines several audit sinks; each one receives every event.
func AuditLogs(l ...AuditLog) AuditLog {
	out := make(auditLogs, 0, len(l))
	for _, x := range l {
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

func (l auditLogs) Record(ctx context.Context, event AuditEvent) {
	for _, x := range l {
		x.Record(ctx, event)
	}
}
