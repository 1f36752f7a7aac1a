package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
	txcontext "medgate/pkg/platform/tx"
)

// Store appends audit entries to the audit_entries table. The table has no
// UPDATE or DELETE path and no foreign key to users.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts entry and sets its BIGSERIAL id.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_entries (actor_user_id, actor_role, action, created_at, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, query,
		int64(entry.ActorUserID),
		entry.ActorRole.String(),
		string(entry.Action),
		entry.Timestamp,
		entry.Details,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	entry.ID = domain.LogID(id)
	return nil
}

// Query returns matching entries ordered by id, newest first.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT id, actor_user_id, actor_role, action, created_at, details
		FROM audit_entries
		WHERE ($1 = '' OR actor_role = $1)
		  AND ($2 = '' OR action ILIKE $3 ESCAPE '\')
		ORDER BY id DESC
	`
	role := ""
	if filter.Role != nil {
		role = filter.Role.String()
	}
	pattern := "%" + likeEscaper.Replace(filter.ActionContains) + "%"

	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, query, role, filter.ActionContains, pattern)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := []audit.Entry{}
	for rows.Next() {
		var (
			e        audit.Entry
			id       int64
			actorID  int64
			roleName string
			action   string
		)
		if err := rows.Scan(&id, &actorID, &roleName, &action, &e.Timestamp, &e.Details); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = domain.LogID(id)
		e.ActorUserID = domain.UserID(actorID)
		e.Action = audit.Action(action)
		// rows written before a role was retired stay readable as RoleUnknown
		if r, err := domain.ParseRole(roleName); err == nil {
			e.ActorRole = r
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
