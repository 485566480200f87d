// Package store saves result frames to a SQL database: sqlite, postgres or clickhouse.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/invertedv/uiwba/frame"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// All code interacting with a database is here

//go:embed skeletons
var skeletons embed.FS

const (
	ch = "clickhouse"
	pg = "postgres"
	sl = "sqlite"

	defaultBatch = 500
)

type Dialect struct {
	db      *sql.DB
	dialect string

	dtTypes []string
	dbTypes []string

	create string
	fields string
	dropIf string
	exists string

	batch int
}

// NewDialect wraps db, which must be connected to a database of type dialect.
func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)
	if dialect != ch && dialect != pg && dialect != sl {
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	d := &Dialect{db: db, dialect: dialect, batch: defaultBatch}

	var (
		types string
		e     error
	)
	for _, s := range []struct {
		file string
		dest *string
	}{
		{"create.txt", &d.create},
		{"fields.txt", &d.fields},
		{"dropIf.txt", &d.dropIf},
		{"exists.txt", &d.exists},
		{"types.txt", &types},
	} {
		var b []byte
		if b, e = skeletons.ReadFile("skeletons/" + dialect + "/" + s.file); e != nil {
			return nil, e
		}

		*s.dest = strings.TrimSpace(string(b))
	}

	for _, lm := range strings.Split(types, "\n") {
		if strings.TrimSpace(lm) == "" {
			continue
		}

		t := strings.Split(lm, ",")
		if len(t) != 2 {
			return nil, fmt.Errorf("bad type line in %s skeleton: %s", dialect, lm)
		}

		if frame.DTFromString(t[0]) == frame.DTunknown {
			return nil, fmt.Errorf("unknown data type %s in %s skeleton", t[0], dialect)
		}

		d.dtTypes = append(d.dtTypes, t[0])
		d.dbTypes = append(d.dbTypes, t[1])
	}

	return d, nil
}

// Open connects to dsn.  The scheme picks the database:
//
//	clickhouse://user:pw@host:9000/db
//	postgres://user:pw@host:5432/db
//	sqlite://path/to/file.db, or a bare path
func Open(dsn string) (*Dialect, error) {
	var (
		db      *sql.DB
		dialect string
		e       error
	)

	switch {
	case strings.HasPrefix(dsn, "clickhouse://"):
		var opts *clickhouse.Options
		if opts, e = clickhouse.ParseDSN(dsn); e != nil {
			return nil, e
		}

		db, dialect = clickhouse.OpenDB(opts), ch
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if db, e = sql.Open("pgx", dsn); e != nil {
			return nil, e
		}

		dialect = pg
	default:
		if db, e = sql.Open("sqlite", strings.TrimPrefix(dsn, "sqlite://")); e != nil {
			return nil, e
		}

		// one connection so that :memory: databases are shared
		db.SetMaxOpenConns(1)
		dialect = sl
	}

	if e = db.Ping(); e != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", dialect, e)
	}

	return NewDialect(dialect, db)
}

// ***************** Methods *****************

func (d *Dialect) Close() error {
	return d.db.Close()
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

// SetBatch sets the number of rows per INSERT statement.
func (d *Dialect) SetBatch(rows int) {
	d.batch = rows
}

func (d *Dialect) Exists(tableName string) (bool, error) {
	var n uint64
	qry := strings.ReplaceAll(d.exists, "?TableName", tableName)
	if e := d.db.QueryRow(qry).Scan(&n); e != nil {
		return false, e
	}

	return n > 0, nil
}

func (d *Dialect) DropTable(tableName string) error {
	_, e := d.db.Exec(strings.ReplaceAll(d.dropIf, "?TableName", tableName))

	return e
}

// Create makes tableName with the given fields.  orderBy is used by clickhouse and defaults to the first field.
func (d *Dialect) Create(tableName, orderBy string, fields []string, types []frame.DataTypes) error {
	if len(fields) == 0 || len(fields) != len(types) {
		return fmt.Errorf("bad field list for table %s", tableName)
	}

	if orderBy == "" {
		orderBy = fields[0]
	}

	var flds []string
	for ind := 0; ind < len(fields); ind++ {
		dbType, e := d.dbtype(types[ind])
		if e != nil {
			return e
		}

		field := strings.ReplaceAll(d.fields, "?Field", fields[ind])
		field = strings.ReplaceAll(field, "?Type", dbType)
		flds = append(flds, field)
	}

	create := strings.ReplaceAll(d.create, "?TableName", tableName)
	create = strings.Replace(create, "?OrderBy", orderBy, 1)
	create = strings.Replace(create, "?fields", strings.Join(flds, ","), 1)
	if strings.Contains(create, "?") {
		return fmt.Errorf("create still has placeholders: %s", create)
	}

	_, e := d.db.Exec(create)

	return e
}

// Save writes df to tableName.  If the table exists it is replaced when overwrite is set and appended to
// otherwise.
func (d *Dialect) Save(tableName, orderBy string, df *frame.Frame, overwrite bool) error {
	exists, e := d.Exists(tableName)
	if e != nil {
		return e
	}

	if exists && overwrite {
		if e = d.DropTable(tableName); e != nil {
			return e
		}
	}

	if !exists || overwrite {
		var dts []frame.DataTypes
		if dts, e = df.ColumnTypes(); e != nil {
			return e
		}

		if e = d.Create(tableName, orderBy, df.ColumnNames(), dts); e != nil {
			return e
		}
	}

	return d.insert(tableName, df)
}

// insert writes df in batches of literal VALUES rows.
func (d *Dialect) insert(tableName string, df *frame.Frame) error {
	var cols []*frame.Col
	for c := df.Next(true); c != nil; c = df.Next(false) {
		cols = append(cols, c)
	}

	quoted := make([]string, len(cols))
	for ind, c := range cols {
		quoted[ind] = strings.Trim(strings.ReplaceAll(d.fields, "?Type", ""), " ")
		quoted[ind] = strings.ReplaceAll(quoted[ind], "?Field", c.Name())
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tableName, strings.Join(quoted, ","))

	var rows []string
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}

		_, e := d.db.Exec(head + strings.Join(rows, ","))
		rows = rows[:0]

		return e
	}

	vals := make([]string, len(cols))
	for r := 0; r < df.RowCount(); r++ {
		for ind, c := range cols {
			vals[ind] = d.ToString(c.Data().Element(r))
		}

		rows = append(rows, "("+strings.Join(vals, ",")+")")
		if d.batch > 0 && len(rows) >= d.batch {
			if e := flush(); e != nil {
				return e
			}
		}
	}

	return flush()
}

// ToString returns a string version of val that can be placed into SQL.  NaN becomes NULL.
func (d *Dialect) ToString(val any) string {
	switch x := val.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NULL"
		}

		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case time.Time:
		return "'" + x.Format("2006-01-02") + "'"
	}

	return "NULL"
}

// Load runs qry and returns the result as a frame.  NULLs become NaN, 0 or "".
func (d *Dialect) Load(qry string) (*frame.Frame, error) {
	rows, e := d.db.Query(qry)
	if e != nil {
		return nil, e
	}
	defer func() { _ = rows.Close() }()

	names, e := rows.Columns()
	if e != nil {
		return nil, e
	}

	data := make([][]any, len(names))
	for rows.Next() {
		row := make([]any, len(names))
		ptrs := make([]any, len(names))
		for ind := range row {
			ptrs[ind] = &row[ind]
		}

		if e = rows.Scan(ptrs...); e != nil {
			return nil, e
		}

		for ind, v := range row {
			data[ind] = append(data[ind], normalize(v))
		}
	}

	if e = rows.Err(); e != nil {
		return nil, e
	}

	var cols []*frame.Col
	for ind, nm := range names {
		dt := frame.DTstring
		for _, v := range data[ind] {
			if v != nil {
				dt = frame.WhatAmI(v)
				break
			}
		}

		if dt == frame.DTunknown {
			dt = frame.DTstring
		}

		v := frame.MakeVector(dt, len(data[ind]))
		for r, x := range data[ind] {
			if e = set(v, dt, x, r); e != nil {
				return nil, fmt.Errorf("column %s row %d: %w", nm, r, e)
			}
		}

		var col *frame.Col
		if col, e = frame.NewCol(v, dt, frame.ColName(nm)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return frame.NewFrame(cols...)
}

func (d *Dialect) dbtype(dt frame.DataTypes) (string, error) {
	for ind, t := range d.dtTypes {
		if t == dt.String() {
			return d.dbTypes[ind], nil
		}
	}

	return "", fmt.Errorf("cannot find type %s to map to DB type", dt.String())
}

// normalize maps driver values onto the frame's types.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return int(x)
	case int32:
		return int(x)
	case int16:
		return int(x)
	case int8:
		return int(x)
	case uint64:
		return int(x)
	case uint32:
		return int(x)
	case uint16:
		return int(x)
	case uint8:
		return int(x)
	case float32:
		return float64(x)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case []byte:
		return string(x)
	}

	return v
}

func set(v *frame.Vector, dt frame.DataTypes, x any, indx int) error {
	switch dt {
	case frame.DTfloat:
		f := math.NaN()
		switch xv := x.(type) {
		case float64:
			f = xv
		case int:
			f = float64(xv)
		}

		return v.SetFloat(f, indx)
	case frame.DTint:
		i, _ := x.(int)
		return v.SetInt(i, indx)
	case frame.DTdate:
		t, _ := x.(time.Time)
		return v.SetDate(t, indx)
	default:
		s, ok := x.(string)
		if !ok && x != nil {
			s = fmt.Sprint(x)
		}

		return v.SetString(s, indx)
	}
}
