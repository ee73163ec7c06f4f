package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// maxVariables stays under SQLite's default host parameter limit.
const maxVariables = 999

// bulkInsert writes rows with multi-row INSERT statements, as many rows per
// statement as the parameter limit allows.
func bulkInsert(ctx context.Context, q querier, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	perStmt := maxVariables / len(columns)
	tuple := "(" + placeholders(len(columns)) + ")"
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))

		var b strings.Builder
		b.WriteString(head)
		args := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tuple)
			args = append(args, row...)
		}

		if _, err := q.ExecContext(ctx, b.String(), args...); err != nil {
			return wrapWriteError("insert into "+table, err)
		}
	}
	return nil
}

// updateRow is one row of a bulk update: its key and the new column values.
type updateRow struct {
	key    any
	values []any
}

// bulkUpdate sets columns on the rows matched by keyColumn, with one
// CASE expression per column:
//
//	UPDATE t SET a = CASE id WHEN ? THEN ? ... END, ... WHERE id IN (...)
func bulkUpdate(ctx context.Context, q querier, table, keyColumn string, columns []string, rows []updateRow) error {
	if len(rows) == 0 {
		return nil
	}

	perStmt := maxVariables / (2*len(columns) + 1)

	for start := 0; start < len(rows); start += perStmt {
		chunk := rows[start:min(start+perStmt, len(rows))]

		var b strings.Builder
		fmt.Fprintf(&b, "UPDATE %s SET ", table)
		args := make([]any, 0, len(chunk)*(2*len(columns)+1))

		for c, col := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = CASE %s", col, keyColumn)
			for _, row := range chunk {
				b.WriteString(" WHEN ? THEN ?")
				args = append(args, row.key, row.values[c])
			}
			b.WriteString(" END")
		}

		fmt.Fprintf(&b, " WHERE %s IN (%s)", keyColumn, placeholders(len(chunk)))
		for _, row := range chunk {
			args = append(args, row.key)
		}

		if _, err := q.ExecContext(ctx, b.String(), args...); err != nil {
			return wrapWriteError("update "+table, err)
		}
	}
	return nil
}

// inChunks calls fn with slices of ids small enough for an IN list.
func inChunks[T any](ids []T, fn func(chunk []T) error) error {
	for start := 0; start < len(ids); start += maxVariables {
		if err := fn(ids[start:min(start+maxVariables, len(ids))]); err != nil {
			return err
		}
	}
	return nil
}

func toArgs[T any](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
