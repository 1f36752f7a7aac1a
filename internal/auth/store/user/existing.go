package user

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	txcontext "medgate/pkg/platform/tx"
)

// ExistingUsernames reports which of usernames are already provisioned.
func (s *InMemoryUserStore) ExistingUsernames(_ context.Context, usernames []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		if _, ok := s.byUsername[name]; ok {
			out[name] = true
		}
	}
	return out, nil
}

// ExistingUsernames reports which of usernames are already provisioned, in
// one round trip.
func (s *PostgresUserStore) ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error) {
	out := make(map[string]bool, len(usernames))
	if len(usernames) == 0 {
		return out, nil
	}
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT username FROM users WHERE username = ANY($1::text[])`, pq.Array(usernames))
	if err != nil {
		return nil, fmt.Errorf("query existing usernames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		out[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usernames: %w", err)
	}
	return out, nil
}
