package store

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/invertedv/uiwba/frame"
)

const ColRunID = "run_id"

func NewRunID() string {
	return uuid.NewString()
}

// SaveRun appends each frame to table <prefix>_<name>, tagged with runID.  Tables are created as needed.
func (d *Dialect) SaveRun(prefix, runID string, tables map[string]*frame.Frame) ([]string, error) {
	if _, e := uuid.Parse(runID); e != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, e)
	}

	names := make([]string, 0, len(tables))
	for nm := range tables {
		names = append(names, nm)
	}
	sort.Strings(names)

	var saved []string
	for _, nm := range names {
		df := tables[nm].Copy()
		ids := make([]string, df.RowCount())
		for ind := range ids {
			ids[ind] = runID
		}

		if e := df.AppendColumn(frame.MustCol(ColRunID, ids), true); e != nil {
			return saved, e
		}

		tableName := frame.CleanName(prefix + "_" + nm)
		if e := d.Save(tableName, ColRunID, df, false); e != nil {
			return saved, fmt.Errorf("save %s: %w", tableName, e)
		}

		saved = append(saved, tableName)
	}

	return saved, nil
}
