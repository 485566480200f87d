package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// All code interacting with files is here

const (
	Sep         = ','
	DateFormat  = "2006-01-02"
	FloatFormat = "%.2f"
	Header      = true
	Peek        = 1000
)

type Files struct {
	FieldNames  []string
	FieldTypes  map[string]DataTypes
	Sep         rune
	DateFormat  string
	FloatFormat string
	Header      bool
	Peek        int
	Strict      bool

	rdr      io.ReadCloser
	fileName string
}

type FileOpt func(f *Files) error

func NewFiles(opts ...FileOpt) (*Files, error) {
	f := &Files{
		Sep:         Sep,
		DateFormat:  DateFormat,
		FloatFormat: FloatFormat,
		Header:      Header,
		Peek:        Peek,
	}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	return f, nil
}

// *********** Setters ***********

func FileSep(sep rune) FileOpt {
	return func(f *Files) error {
		if sep == '\n' || sep == '"' {
			return fmt.Errorf("illegal separator %q", sep)
		}

		f.Sep = sep
		return nil
	}
}

// FileFieldNames sets the field names.  Use when the file has no header row.
func FileFieldNames(names []string) FileOpt {
	return func(f *Files) error {
		for _, nm := range names {
			if e := validName(nm); e != nil {
				return e
			}
		}

		f.FieldNames = names
		return nil
	}
}

// FileFieldTypes fixes the type of the named fields rather than imputing them.
func FileFieldTypes(types map[string]DataTypes) FileOpt {
	return func(f *Files) error {
		for nm, dt := range types {
			if dt == DTunknown || dt == DTany {
				return fmt.Errorf("unsupported type %s for field %s", dt, nm)
			}
		}

		f.FieldTypes = types
		return nil
	}
}

func FileDateFormat(format string) FileOpt {
	return func(f *Files) error {
		f.DateFormat = format
		return nil
	}
}

func FileFloatFormat(format string) FileOpt {
	return func(f *Files) error {
		if !strings.Contains(format, "%") {
			return fmt.Errorf("invalid float format %s", format)
		}

		f.FloatFormat = format
		return nil
	}
}

func FileHeader(header bool) FileOpt {
	return func(f *Files) error {
		f.Header = header
		return nil
	}
}

// FilePeek sets the number of rows used to impute field types.  0 means all rows.
func FilePeek(rows int) FileOpt {
	return func(f *Files) error {
		if rows < 0 {
			return fmt.Errorf("negative peek")
		}

		f.Peek = rows
		return nil
	}
}

// FileStrict makes empty or unparseable fields an error rather than a missing value.
func FileStrict(strict bool) FileOpt {
	return func(f *Files) error {
		f.Strict = strict
		return nil
	}
}

// *********** Methods ***********

func (f *Files) Open(fileName string) error {
	var (
		fh *os.File
		e  error
	)
	if fh, e = os.Open(fileName); e != nil {
		return e
	}

	f.OpenReader(fh, fileName)

	return nil
}

// OpenReader reads from rdr rather than a local file.  name is used in error messages.
func (f *Files) OpenReader(rdr io.ReadCloser, name string) {
	f.rdr, f.fileName = rdr, name
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.rdr != nil {
		e := f.rdr.Close()
		f.rdr = nil
		return e
	}

	return fmt.Errorf("no open files")
}

// Load reads the open file into a Frame and closes it.
func (f *Files) Load() (*Frame, error) {
	if f.rdr == nil {
		return nil, fmt.Errorf("no open file in Files.Load")
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f.rdr)
	r.Comma = f.Sep
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var (
		rows [][]string
		e    error
	)
	if rows, e = r.ReadAll(); e != nil {
		return nil, fmt.Errorf("%s: %w", f.fileName, e)
	}

	names := f.FieldNames
	if f.Header {
		if len(rows) == 0 {
			return nil, fmt.Errorf("%s: no header row", f.fileName)
		}

		if names == nil {
			for _, nm := range rows[0] {
				names = append(names, CleanName(strings.TrimPrefix(nm, "\ufeff")))
			}
		}

		rows = rows[1:]
	}

	if names == nil {
		return nil, fmt.Errorf("%s: field names not set and no header", f.fileName)
	}

	for ind, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%s: row %d has %d fields, expected %d", f.fileName, ind+1, len(row), len(names))
		}
	}

	var cols []*Col
	for c, nm := range names {
		dt, ok := f.FieldTypes[nm]
		if !ok {
			dt = f.impute(rows, c)
		}

		var col *Col
		if col, e = f.column(nm, dt, rows, c); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewFrame(cols...)
}

// impute determines the type of field c by peeking at the data.
func (f *Files) impute(rows [][]string, c int) DataTypes {
	dt := DTunknown
	for ind, row := range rows {
		if f.Peek > 0 && ind >= f.Peek {
			break
		}

		val := strings.TrimSpace(row[c])
		if val == "" {
			continue
		}

		dt = widen(dt, bestType(val))
	}

	if dt == DTunknown {
		return DTstring
	}

	return dt
}

func widen(current, next DataTypes) DataTypes {
	switch {
	case current == DTunknown || current == next:
		return next
	case current.IsNumeric() && next.IsNumeric():
		return DTfloat
	default:
		return DTstring
	}
}

func (f *Files) column(name string, dt DataTypes, rows [][]string, c int) (*Col, error) {
	v := MakeVector(dt, len(rows))
	for ind, row := range rows {
		val := strings.TrimSpace(row[c])
		if dt == DTstring {
			_ = v.SetString(val, ind)
			continue
		}

		if val == "" {
			if f.Strict {
				return nil, fmt.Errorf("%s: missing value for %s in row %d", f.fileName, name, ind+1)
			}

			switch dt {
			case DTfloat:
				_ = v.SetFloat(math.NaN(), ind)
			case DTint:
				_ = v.SetInt(0, ind)
			case DTdate:
				_ = v.SetDate(time.Time{}, ind)
			}

			continue
		}

		var (
			x  any
			ok bool
		)
		if dt == DTdate {
			if t, e := time.Parse(f.DateFormat, val); e == nil {
				x, ok = t, true
			}
		}

		if !ok {
			if x, ok = toDataType(val, dt); !ok {
				return nil, fmt.Errorf("%s: cannot convert %q to %s for %s in row %d", f.fileName, val, dt, name, ind+1)
			}
		}

		switch dt {
		case DTfloat:
			_ = v.SetFloat(x.(float64), ind)
		case DTint:
			_ = v.SetInt(x.(int), ind)
		case DTdate:
			_ = v.SetDate(x.(time.Time), ind)
		}
	}

	return NewCol(v, dt, ColName(name))
}

// Save writes df to fileName as a delimited file.
func (f *Files) Save(fileName string, df *Frame) error {
	var (
		fh *os.File
		e  error
	)
	if fh, e = os.Create(fileName); e != nil {
		return e
	}

	if e = f.Write(fh, df); e != nil {
		_ = fh.Close()
		return e
	}

	return fh.Close()
}

func (f *Files) Write(w io.Writer, df *Frame) error {
	wr := csv.NewWriter(w)
	wr.Comma = f.Sep

	if f.Header {
		if e := wr.Write(df.ColumnNames()); e != nil {
			return e
		}
	}

	line := make([]string, df.ColumnCount())
	for row := 0; row < df.RowCount(); row++ {
		ind := 0
		for col := df.Next(true); col != nil; col = df.Next(false) {
			line[ind] = f.format(col.Element(row))
			ind++
		}

		if e := wr.Write(line); e != nil {
			return e
		}
	}

	wr.Flush()

	return wr.Error()
}

func (f *Files) format(x any) string {
	switch d := x.(type) {
	case float64:
		if math.IsNaN(d) {
			return ""
		}

		return fmt.Sprintf(f.FloatFormat, d)
	case int:
		return strconv.Itoa(d)
	case time.Time:
		return d.Format(f.DateFormat)
	case string:
		return d
	default:
		return "#err#"
	}
}
