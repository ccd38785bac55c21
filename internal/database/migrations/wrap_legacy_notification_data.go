package migrations

import (
	"context"
	"database/sql"

	"github.com/bhandras/studyhall/internal/logger"
	"github.com/goccy/go-json"
)

// WrapLegacyNotificationData rewrites notifications.data values that are not
// valid JSON into {"value": <old text>} so that readers can always decode the
// column. Only SQLite stores data as free text; Postgres uses JSONB.
func WrapLegacyNotificationData(ctx context.Context, db *sql.DB) (int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, data FROM notifications WHERE data IS NOT NULL AND json_valid(data) = 0`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type item struct {
		id   int64
		data string
	}
	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.id, &it.data); err != nil {
			return 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	// Release the connection before opening the transaction.
	rows.Close()
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE notifications SET data = ? WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, it := range items {
		wrapped, err := json.Marshal(map[string]string{"value": it.data})
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, string(wrapped), it.id); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.Infof("Wrapped %d legacy notification data values", len(items))
	return len(items), nil
}
