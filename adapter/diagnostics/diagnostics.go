// Package diagnostics renders introspection views of the engine state, such
// as the locks held by active transactions.
package diagnostics

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/dolmen-go/contextio"
	"github.com/olekukonko/tablewriter"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

// LockRow is one line of the "show locks" view.
type LockRow struct {
	ProcessID   uint64
	Granularity domain.Granularity
	Operation   domain.LockOperation
	ObjectName  string
}

// LockRows flattens a lock snapshot into rows, keeping the snapshot order. A
// zero pid keeps every process.
func LockRows(snapshot []domain.TransactionSnapshot, pid uint64) []LockRow {
	var res []LockRow
	for _, tx := range snapshot {
		if pid != 0 && tx.ProcessID != pid {
			continue
		}
		for _, l := range tx.HeldLocks {
			res = append(res, LockRow{
				ProcessID:   l.ProcessID,
				Granularity: l.Granularity,
				Operation:   l.Operation,
				ObjectName:  l.ObjectName,
			})
		}
	}
	return res
}

// RenderLocks writes rows as a table. The table is built in memory and
// copied to w, so a canceled ctx stops the copy.
func RenderLocks(ctx context.Context, w io.Writer, rows []LockRow) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	buf := new(bytes.Buffer)
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Process", "Granularity", "Operation", "Object"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{
			strconv.FormatUint(r.ProcessID, 10),
			r.Granularity.String(),
			r.Operation.String(),
			r.ObjectName,
		})
	}
	table.Render()

	_, err := io.Copy(contextio.NewWriter(ctx, w), buf)
	return err
}

// RenderWarnings writes the warnings of a transaction as a table.
func RenderWarnings(ctx context.Context, w io.Writer, warnings []domain.Warning) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	buf := new(bytes.Buffer)
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Kind", "Left", "Qualifier", "Right", "Message"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, warn := range warnings {
		table.Append([]string{
			warn.Kind.String(),
			warn.Left.String(),
			warn.Qualifier.String(),
			warn.Right.String(),
			warn.Message,
		})
	}
	table.Render()

	_, err := io.Copy(contextio.NewWriter(ctx, w), buf)
	return err
}
