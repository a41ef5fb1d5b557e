package backend

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/MrJamesThe3rd/haulbook/internal/audit"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

var _ audit.Source = (*Client)(nil)

func (c *Client) AuditLogs(ctx context.Context, sess *session.Session, filter audit.Filter) ([]audit.Entry, error) {
	q := url.Values{}
	if !filter.From.IsZero() {
		q.Set("from", formatDate(filter.From))
	}

	if !filter.To.IsZero() {
		q.Set("to", formatDate(filter.To))
	}

	if filter.Action != "" {
		q.Set("action", filter.Action)
	}

	if filter.User != "" {
		q.Set("user", filter.User)
	}

	var raw []auditEntryV1
	if err := c.do(ctx, sess, http.MethodGet, "/Accounting/audit-logs", q, nil, &raw); err != nil {
		return nil, err
	}

	entries := make([]audit.Entry, 0, len(raw))

	for _, r := range raw {
		e := audit.Entry{
			ID:       r.ID,
			User:     r.User,
			Action:   r.Action,
			Entity:   r.Entity,
			EntityID: r.EntityID,
			Details:  r.Details,
		}

		if at, err := parseTime(r.Timestamp); err == nil {
			e.At = at
		} else {
			slog.Warn("audit entry without usable timestamp", "id", r.ID, "error", err)
		}

		entries = append(entries, e)
	}

	return entries, nil
}
