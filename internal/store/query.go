package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/dbx"
)

func get(ctx context.Context, q dbx.DBTX, c Collection, key string) (json.RawMessage, error) {
	var doc string
	query := fmt.Sprintf(`SELECT doc FROM %q WHERE id = ?`, c.Name)
	err := q.QueryRowContext(ctx, query, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewStorageError("get", c.Name, err)
	}
	return json.RawMessage(doc), nil
}

func put(ctx context.Context, q dbx.DBTX, c Collection, value any) error {
	doc, err := encode(value)
	if err != nil {
		return common.NewStorageError("put", c.Name, err)
	}
	key, err := extractKey(doc, c.KeyPath)
	if err != nil {
		return common.NewStorageError("put", c.Name, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %q (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, c.Name)
	if _, err := q.ExecContext(ctx, query, key, string(doc)); err != nil {
		return common.NewStorageError("put", c.Name, err)
	}
	return nil
}

func del(ctx context.Context, q dbx.DBTX, c Collection, key string) error {
	query := fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, c.Name)
	if _, err := q.ExecContext(ctx, query, key); err != nil {
		return common.NewStorageError("delete", c.Name, err)
	}
	return nil
}

func getAll(ctx context.Context, q dbx.DBTX, c Collection, index string, value any) ([]json.RawMessage, error) {
	var r *Range
	if value != nil {
		r = Only(value)
	}
	query, args, err := selectDocs(c, index, r)
	if err != nil {
		return nil, common.NewStorageError("getAll", c.Name, err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewStorageError("getAll", c.Name, err)
	}
	out, err := dbx.CollectRows(rows, scanDoc)
	if err != nil {
		return nil, common.NewStorageError("getAll", c.Name, err)
	}
	return out, nil
}

func iterate(ctx context.Context, q dbx.DBTX, c Collection, index string, r *Range, visit func(json.RawMessage) (bool, error)) error {
	query, args, err := selectDocs(c, index, r)
	if err != nil {
		return common.NewStorageError("iterate", c.Name, err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return common.NewStorageError("iterate", c.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return common.NewStorageError("iterate", c.Name, err)
		}
		more, err := visit(doc)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return common.NewStorageError("iterate", c.Name, err)
	}
	return nil
}

// selectDocs builds the query for documents of c within r, ordered by the
// index column and then by insertion. Rows with a NULL index value are left
// out whenever an index is named.
func selectDocs(c Collection, index string, r *Range) (string, []any, error) {
	col, err := c.column(index)
	if err != nil {
		return "", nil, err
	}

	var (
		where []string
		args  []any
	)
	if index != "" {
		where = append(where, col+" IS NOT NULL")
	}
	if r != nil {
		if r.Lower != nil {
			op := ">="
			if r.LowerOpen {
				op = ">"
			}
			where = append(where, fmt.Sprintf("%s %s ?", col, op))
			args = append(args, indexValue(r.Lower))
		}
		if r.Upper != nil {
			op := "<="
			if r.UpperOpen {
				op = "<"
			}
			where = append(where, fmt.Sprintf("%s %s ?", col, op))
			args = append(args, indexValue(r.Upper))
		}
	}

	query := fmt.Sprintf(`SELECT doc FROM %q`, c.Name)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s, rowid", col)
	return query, args, nil
}

func scanDoc(rows *sql.Rows) (json.RawMessage, error) {
	var doc string
	if err := rows.Scan(&doc); err != nil {
		return nil, err
	}
	return json.RawMessage(doc), nil
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	return json.Marshal(value)
}

// extractKey reads the key path of a JSON object. String and numeric keys
// are accepted; anything else is a missing key.
func extractKey(doc []byte, keyPath string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return "", fmt.Errorf("document is not an object: %w", err)
	}
	raw, ok := fields[keyPath]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrMissingKey, keyPath)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("%w: %s", common.ErrMissingKey, keyPath)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: %s", common.ErrMissingKey, keyPath)
}

// indexValue maps Go values to what json_extract yields for them.
func indexValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
