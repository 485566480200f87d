package frame

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DataTypes are the types of data that the package supports
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTstring
	DTfloat
	DTint
	DTdate
	DTany // keep as last entry
)

// MaxDT is max value of DataTypes type
const MaxDT = DTany

var dtNames = []string{"DTunknown", "DTstring", "DTfloat", "DTint", "DTdate", "DTany"}

func (d DataTypes) String() string {
	if int(d) >= len(dtNames) {
		return fmt.Sprintf("DataTypes(%d)", d)
	}

	return dtNames[d]
}

func (d DataTypes) IsNumeric() bool {
	return d == DTfloat || d == DTint
}

func DTFromString(nm string) DataTypes {
	pos := position(nm, dtNames)
	if pos < 0 {
		return DTunknown
	}

	return DataTypes(uint8(pos))
}

func WhatAmI(val any) DataTypes {
	switch val.(type) {
	case float64, []float64:
		return DTfloat
	case int, []int:
		return DTint
	case string, []string:
		return DTstring
	case time.Time, []time.Time:
		return DTdate
	default:
		return DTunknown
	}
}

// *********** Conversions ***********

var dateFormats = []string{"20060102", "2006-01-02", "1/2/2006", "01/02/2006", "Jan 2, 2006", "January 2, 2006",
	"Jan 2 2006", "January 2 2006"}

func toFloat(x any) (any, bool) {
	if f, ok := x.(float64); ok {
		return f, true
	}

	if s, ok := x.(string); ok {
		if f, e := strconv.ParseFloat(strings.TrimSpace(s), 64); e == nil {
			return f, true
		}

		return nil, false
	}

	xv := reflect.ValueOf(x)
	if xv.CanFloat() {
		return xv.Float(), true
	}

	if xv.CanInt() {
		return float64(xv.Int()), true
	}

	if xv.CanUint() {
		return float64(xv.Uint()), true
	}

	return nil, false
}

func toInt(x any) (any, bool) {
	if i, ok := x.(int); ok {
		return i, true
	}

	if s, ok := x.(string); ok {
		if i, e := strconv.ParseInt(strings.TrimSpace(s), 10, 64); e == nil {
			return int(i), true
		}

		return nil, false
	}

	xv := reflect.ValueOf(x)
	if xv.CanInt() {
		return int(xv.Int()), true
	}

	if xv.CanUint() {
		return int(xv.Uint()), true
	}

	if xv.CanFloat() {
		return int(xv.Float()), true
	}

	return nil, false
}

func toString(x any) (any, bool) {
	switch v := x.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case time.Time:
		return v.Format("2006-01-02"), true
	}

	return nil, false
}

func toDate(x any) (any, bool) {
	if d, ok := x.(time.Time); ok {
		return d, true
	}

	if d, ok := x.(string); ok {
		for _, fmtx := range dateFormats {
			if dt, e := time.Parse(fmtx, strings.ReplaceAll(strings.TrimSpace(d), "'", "")); e == nil {
				return dt, true
			}
		}
	}

	return nil, false
}

func toDataType(x any, dt DataTypes) (any, bool) {
	switch dt {
	case DTfloat:
		return toFloat(x)
	case DTint:
		return toInt(x)
	case DTdate:
		return toDate(x)
	case DTstring:
		return toString(x)
	case DTany:
		return x, true
	}

	return nil, false
}

// bestType returns the narrowest type a raw CSV field fits.  An int beats a float beats a date beats a string.
func bestType(xIn string) DataTypes {
	if _, ok := toInt(xIn); ok {
		return DTint
	}

	if _, ok := toFloat(xIn); ok {
		return DTfloat
	}

	if _, ok := toDate(xIn); ok {
		return DTdate
	}

	return DTstring
}

// *********** Other ***********

func has[C comparable](needle C, haystack []C) bool {
	return position(needle, haystack) >= 0
}

func position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}

func validName(name string) error {
	const illegal = "!@#$%^&*()=+-;:'`/.,>< ~" + `"`

	if name == "" {
		return fmt.Errorf("empty column name")
	}

	if strings.ContainsAny(name, illegal) {
		return fmt.Errorf("illegal column name: %s", name)
	}

	return nil
}

// CleanName maps a free-form header (e.g. "Avg. Weekly Wage") to a legal column name ("Avg_Weekly_Wage").
func CleanName(name string) string {
	const illegal = "!@#$%^&*()=+-;:'`/.,>< ~" + `"`

	fields := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return strings.ContainsRune(illegal, r)
	})

	return strings.Join(fields, "_")
}
