package frame

import (
	"fmt"
	"sort"
	"strings"
)

// Frame is an ordered set of equal-length columns.
type Frame struct {
	head    *columnList
	current *columnList

	by        []*Col
	ascending bool
}

type columnList struct {
	col *Col

	prior *columnList
	next  *columnList
}

func NewFrame(cols ...*Col) (*Frame, error) {
	if cols == nil {
		return nil, fmt.Errorf("no columns in NewFrame")
	}

	df := &Frame{}
	for _, col := range cols {
		if e := df.AppendColumn(col, false); e != nil {
			return nil, e
		}
	}

	return df, nil
}

// ***************** Frame - Iteration *****************

// Next iterates over the columns of df.  Next(true) returns the first column.
// Next returns nil after the last column.
func (df *Frame) Next(reset bool) *Col {
	if reset || df.current == nil {
		df.current = df.head
		if df.current == nil {
			return nil
		}

		return df.current.col
	}

	if df.current.next == nil {
		df.current = nil
		return nil
	}

	df.current = df.current.next
	return df.current.col
}

// ***************** Frame - Getters *****************

func (df *Frame) RowCount() int {
	if df.head == nil {
		return 0
	}

	return df.head.col.Len()
}

func (df *Frame) ColumnCount() int {
	cols := 0
	for c := df.head; c != nil; c = c.next {
		cols++
	}

	return cols
}

func (df *Frame) ColumnNames() []string {
	var names []string

	for h := df.head; h != nil; h = h.next {
		names = append(names, h.col.Name())
	}

	return names
}

func (df *Frame) ColumnTypes(cols ...string) ([]DataTypes, error) {
	if cols == nil {
		cols = df.ColumnNames()
	}

	var dts []DataTypes
	for _, cn := range cols {
		var col *Col
		if col = df.Column(cn); col == nil {
			return nil, fmt.Errorf("column %s not found", cn)
		}

		dts = append(dts, col.DataType())
	}

	return dts, nil
}

// Column returns the column colName or nil if there is no such column.
func (df *Frame) Column(colName string) *Col {
	if n := df.node(colName); n != nil {
		return n.col
	}

	return nil
}

func (df *Frame) HasColumns(cols ...string) bool {
	for _, cn := range cols {
		if df.Column(cn) == nil {
			return false
		}
	}

	return true
}

// Floats returns column colName as []float64.
func (df *Frame) Floats(colName string) ([]float64, error) {
	var col *Col
	if col = df.Column(colName); col == nil {
		return nil, fmt.Errorf("column %s not found", colName)
	}

	return col.AsFloat()
}

// Ints returns column colName as []int.
func (df *Frame) Ints(colName string) ([]int, error) {
	var col *Col
	if col = df.Column(colName); col == nil {
		return nil, fmt.Errorf("column %s not found", colName)
	}

	return col.AsInt()
}

// Strings returns column colName as []string.
func (df *Frame) Strings(colName string) ([]string, error) {
	var col *Col
	if col = df.Column(colName); col == nil {
		return nil, fmt.Errorf("column %s not found", colName)
	}

	return col.AsString()
}

// ***************** Frame - Column Ops *****************

// AppendColumn adds col to the end of df.  If replace is true, an existing column of the same name is dropped first.
func (df *Frame) AppendColumn(col *Col, replace bool) error {
	if col == nil {
		return fmt.Errorf("nil column in AppendColumn")
	}

	if e := validName(col.Name()); e != nil {
		return e
	}

	if has(col.Name(), df.ColumnNames()) {
		if !replace {
			return fmt.Errorf("duplicate column name: %s", col.Name())
		}

		if e := df.DropColumns(col.Name()); e != nil && df.head != nil {
			return e
		}
	}

	if df.head != nil && col.Len() != df.RowCount() {
		return fmt.Errorf("length mismatch: frame - %d, append col %s - %d", df.RowCount(), col.Name(), col.Len())
	}

	node := &columnList{col: col}
	if df.head == nil {
		df.head = node
		return nil
	}

	var tail *columnList
	for tail = df.head; tail.next != nil; tail = tail.next {
	}

	node.prior = tail
	tail.next = node

	return nil
}

func (df *Frame) node(colName string) *columnList {
	for h := df.head; h != nil; h = h.next {
		if h.col.Name() == colName {
			return h
		}
	}

	return nil
}

func (df *Frame) DropColumns(colNames ...string) error {
	for _, cName := range colNames {
		var node *columnList
		if node = df.node(cName); node == nil {
			return fmt.Errorf("column %s not found", cName)
		}

		if node == df.head {
			df.head = df.head.next
			if df.head != nil {
				df.head.prior = nil
			}

			continue
		}

		node.prior.next = node.next
		if node.next != nil {
			node.next.prior = node.prior
		}
	}

	df.current = nil
	if df.head == nil {
		return fmt.Errorf("no columns left")
	}

	return nil
}

// KeepColumns returns a new Frame with colNames.  The columns are shared, not copied.
func (df *Frame) KeepColumns(colNames ...string) (*Frame, error) {
	var cols []*Col
	for _, cn := range colNames {
		var col *Col
		if col = df.Column(cn); col == nil {
			return nil, fmt.Errorf("column %s not found", cn)
		}

		cols = append(cols, col)
	}

	return NewFrame(cols...)
}

func (df *Frame) Copy() *Frame {
	var cols []*Col
	for c := df.head; c != nil; c = c.next {
		cols = append(cols, c.col.Copy())
	}

	dfc, _ := NewFrame(cols...)

	return dfc
}

// ***************** Frame - Row Ops *****************

// Where returns a new Frame with the rows for which keep is true.
func (df *Frame) Where(keep []bool) (*Frame, error) {
	if len(keep) != df.RowCount() {
		return nil, fmt.Errorf("Where: indicator length %d, frame length %d", len(keep), df.RowCount())
	}

	var indx []int
	for ind, k := range keep {
		if k {
			indx = append(indx, ind)
		}
	}

	return df.Take(indx)
}

// Take returns a new Frame with rows indx of df.
func (df *Frame) Take(indx []int) (*Frame, error) {
	var cols []*Col
	for c := df.head; c != nil; c = c.next {
		var (
			v *Vector
			e error
		)
		if v, e = c.col.Take(indx); e != nil {
			return nil, e
		}

		cols = append(cols, &Col{Vector: v, name: c.col.Name()})
	}

	return NewFrame(cols...)
}

// Split partitions df by the values of the key column.  The second return is the sorted list of keys.
func (df *Frame) Split(key string) (map[string]*Frame, []string, error) {
	var (
		vals []string
		e    error
	)
	if vals, e = df.Strings(key); e != nil {
		return nil, nil, e
	}

	rows := make(map[string][]int)
	for ind, v := range vals {
		rows[v] = append(rows[v], ind)
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]*Frame)
	for _, k := range keys {
		var part *Frame
		if part, e = df.Take(rows[k]); e != nil {
			return nil, nil, e
		}

		out[k] = part
	}

	return out, keys, nil
}

// Sort sorts df in place on keys.
func (df *Frame) Sort(ascending bool, keys ...string) error {
	var by []*Col
	for _, k := range keys {
		var col *Col
		if col = df.Column(k); col == nil {
			return fmt.Errorf("column %s not found", k)
		}

		by = append(by, col)
	}

	df.by, df.ascending = by, ascending
	sort.Stable(df)
	df.by = nil

	return nil
}

// Len is required for sort
func (df *Frame) Len() int {
	return df.RowCount()
}

func (df *Frame) Less(i, j int) bool {
	for _, col := range df.by {
		a, b := col.Less(i, j), col.Less(j, i)
		if !a && !b {
			continue
		}

		if df.ascending {
			return a
		}

		return b
	}

	return false
}

func (df *Frame) Swap(i, j int) {
	for c := df.head; c != nil; c = c.next {
		c.col.Swap(i, j)
	}
}

func (df *Frame) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("rows: %d, columns: %d\n", df.RowCount(), df.ColumnCount()))
	for c := df.head; c != nil; c = c.next {
		sb.WriteString(c.col.String())
		sb.WriteString("\n")
	}

	return sb.String()
}
