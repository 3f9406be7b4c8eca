package attendance

import (
	"context"
	"database/sql"
	"errors"
)

// StatusCount is the number of logs carrying one status value.
type StatusCount struct {
	Status Status
	Count  int
}

// StatusCounts groups attendance logs by their stored status, whatever it is.
func (r *Repository) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance_logs
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		res = append(res, sc)
	}
	return res, rows.Err()
}

// LatestLog returns the most recently scanned log, or nil when there are none.
func (r *Repository) LatestLog(ctx context.Context) (*Log, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+logColumns+` FROM attendance_logs
		ORDER BY scanned_at DESC, id DESC
		LIMIT 1
	`)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
