package store

import "context"

// Stats returns a count of sessions grouped by status.
func (s *Store) Stats(ctx context.Context) (map[SessionStatus]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, storageErr("session stats", err)
	}
	defer rows.Close()

	stats := make(map[SessionStatus]int)
	for rows.Next() {
		var status SessionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, storageErr("scan stats", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("session stats", err)
	}
	return stats, nil
}
