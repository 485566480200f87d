package frame

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvData = `year,state,wage,weeks,dt
2019,NY,52000,52,2019-03-01
2019,CA,26000.50,26,2019-04-01
2020,TX,,13,2020-01-15
`

func load(t *testing.T, data string, opts ...FileOpt) (*Frame, error) {
	f, e := NewFiles(opts...)
	require.Nil(t, e)
	f.OpenReader(io.NopCloser(strings.NewReader(data)), "test.csv")

	return f.Load()
}

func TestFiles_Load(t *testing.T) {
	df, e := load(t, csvData)
	require.Nil(t, e)
	assert.Equal(t, 3, df.RowCount())

	dts, e := df.ColumnTypes()
	require.Nil(t, e)
	assert.Equal(t, []DataTypes{DTint, DTstring, DTfloat, DTint, DTdate}, dts)

	wage, _ := df.Floats("wage")
	assert.Equal(t, 52000.0, wage[0])
	assert.True(t, math.IsNaN(wage[2]))
}

func TestFiles_LoadStrict(t *testing.T) {
	_, e := load(t, csvData, FileStrict(true))
	assert.NotNil(t, e)
}

func TestFiles_FieldTypes(t *testing.T) {
	df, e := load(t, csvData, FileFieldTypes(map[string]DataTypes{"year": DTstring, "weeks": DTfloat}))
	require.Nil(t, e)
	dts, _ := df.ColumnTypes("year", "weeks")
	assert.Equal(t, []DataTypes{DTstring, DTfloat}, dts)

	_, e = load(t, csvData, FileFieldTypes(map[string]DataTypes{"state": DTint}))
	assert.NotNil(t, e)
}

func TestFiles_NoHeader(t *testing.T) {
	df, e := load(t, "1,a\n2,b\n", FileHeader(false), FileFieldNames([]string{"n", "s"}))
	require.Nil(t, e)
	n, _ := df.Ints("n")
	assert.Equal(t, []int{1, 2}, n)

	_, e = load(t, "1,a\n", FileHeader(false))
	assert.NotNil(t, e)
}

func TestFiles_Ragged(t *testing.T) {
	_, e := load(t, "a,b\n1,2\n3\n")
	assert.NotNil(t, e)
}

func TestFiles_CleanHeader(t *testing.T) {
	df, e := load(t, "Avg. Weekly Wage,State\n\"$1,200.00\",NY\n")
	require.Nil(t, e)
	assert.Equal(t, []string{"Avg_Weekly_Wage", "State"}, df.ColumnNames())
	s, _ := df.Strings("Avg_Weekly_Wage")
	assert.Equal(t, []string{"$1,200.00"}, s)
}

func TestFiles_Save(t *testing.T) {
	df, e := load(t, csvData)
	require.Nil(t, e)

	f, _ := NewFiles()
	var buf bytes.Buffer
	require.Nil(t, f.Write(&buf, df))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "year,state,wage,weeks,dt", lines[0])
	assert.Equal(t, "2019,CA,26000.50,26,2019-04-01", lines[2])
	assert.Equal(t, "2020,TX,,13,2020-01-15", lines[3])

	fn := filepath.Join(t.TempDir(), "out.csv")
	require.Nil(t, f.Save(fn, df))
	require.Nil(t, f.Open(fn))
	dfy, e := f.Load()
	require.Nil(t, e)
	x, _ := df.Ints("year")
	y, _ := dfy.Ints("year")
	assert.Equal(t, x, y)

	_, e = os.Stat(fn)
	assert.Nil(t, e)
}
