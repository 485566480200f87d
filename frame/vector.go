package frame

import (
	"fmt"
	"reflect"
	"time"
)

// Vector is a typed slice: []float64, []int, []string or []time.Time.
type Vector struct {
	dt DataTypes

	data any
}

func NewVector(data any, dt DataTypes) (*Vector, error) {
	var (
		v  any
		ok bool
	)
	if v, ok = toSlc(data, dt); !ok {
		return nil, fmt.Errorf("cannot make vector of type %s", dt)
	}

	return &Vector{dt: dt, data: v}, nil
}

func MakeVector(dt DataTypes, n int) *Vector {
	switch dt {
	case DTfloat:
		return &Vector{dt: dt, data: make([]float64, n)}
	case DTint:
		return &Vector{dt: dt, data: make([]int, n)}
	case DTstring:
		return &Vector{dt: dt, data: make([]string, n)}
	case DTdate:
		return &Vector{dt: dt, data: make([]time.Time, n)}
	default:
		panic(fmt.Errorf("cannot make Vector with data type %s", dt))
	}
}

// *********** Setters ***********

func (v *Vector) SetFloat(val float64, indx int) error {
	if v.VectorType() != DTfloat {
		return fmt.Errorf("vector isn't DTfloat")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]float64)[indx] = val

	return nil
}

func (v *Vector) SetInt(val, indx int) error {
	if v.VectorType() != DTint {
		return fmt.Errorf("vector isn't DTint")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]int)[indx] = val

	return nil
}

func (v *Vector) SetString(val string, indx int) error {
	if v.VectorType() != DTstring {
		return fmt.Errorf("vector isn't DTstring")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]string)[indx] = val

	return nil
}

func (v *Vector) SetDate(val time.Time, indx int) error {
	if v.VectorType() != DTdate {
		return fmt.Errorf("vector isn't DTdate")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]time.Time)[indx] = val

	return nil
}

// *********** Getters ***********

func (v *Vector) VectorType() DataTypes {
	return v.dt
}

func (v *Vector) AsAny() any {
	return v.data
}

// AsFloat returns the underlying slice if v is DTfloat, o.w. a converted copy.
func (v *Vector) AsFloat() ([]float64, error) {
	if v.VectorType() == DTfloat {
		return v.data.([]float64), nil
	}

	if v.VectorType() == DTint {
		xOut := make([]float64, v.Len())
		for ind, xx := range v.data.([]int) {
			xOut[ind] = float64(xx)
		}

		return xOut, nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTfloat); e != nil {
		return nil, e
	}

	return vx.data.([]float64), nil
}

func (v *Vector) AsInt() ([]int, error) {
	if v.VectorType() == DTint {
		return v.data.([]int), nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTint); e != nil {
		return nil, e
	}

	return vx.data.([]int), nil
}

func (v *Vector) AsString() ([]string, error) {
	if v.dt == DTstring {
		return v.data.([]string), nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTstring); e != nil {
		return nil, e
	}

	return vx.data.([]string), nil
}

func (v *Vector) AsDate() ([]time.Time, error) {
	if v.dt == DTdate {
		return v.data.([]time.Time), nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTdate); e != nil {
		return nil, e
	}

	return vx.data.([]time.Time), nil
}

func (v *Vector) Element(indx int) any {
	if indx < 0 || indx >= v.Len() {
		return nil
	}

	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return v.data.([]int)[indx]
	case DTstring:
		return v.data.([]string)[indx]
	case DTdate:
		return v.data.([]time.Time)[indx]
	default:
		return nil
	}
}

func (v *Vector) Len() int {
	switch v.dt {
	case DTfloat:
		return len(v.data.([]float64))
	case DTint:
		return len(v.data.([]int))
	case DTstring:
		return len(v.data.([]string))
	case DTdate:
		return len(v.data.([]time.Time))
	default:
		return 0
	}
}

// *********** sort.Interface ***********

func (v *Vector) Swap(i, j int) {
	switch v.dt {
	case DTfloat:
		v.data.([]float64)[i], v.data.([]float64)[j] = v.data.([]float64)[j], v.data.([]float64)[i]
	case DTint:
		v.data.([]int)[i], v.data.([]int)[j] = v.data.([]int)[j], v.data.([]int)[i]
	case DTstring:
		v.data.([]string)[i], v.data.([]string)[j] = v.data.([]string)[j], v.data.([]string)[i]
	case DTdate:
		v.data.([]time.Time)[i], v.data.([]time.Time)[j] = v.data.([]time.Time)[j], v.data.([]time.Time)[i]
	}
}

func (v *Vector) Less(i, j int) bool {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[i] < v.data.([]float64)[j]
	case DTint:
		return v.data.([]int)[i] < v.data.([]int)[j]
	case DTstring:
		return v.data.([]string)[i] < v.data.([]string)[j]
	case DTdate:
		return v.data.([]time.Time)[i].Before(v.data.([]time.Time)[j])
	default:
		return false
	}
}

// *********** Methods ***********

func (v *Vector) AppendVector(vAdd *Vector) error {
	if v.VectorType() != vAdd.VectorType() {
		return fmt.Errorf("appending different vector types")
	}

	switch v.dt {
	case DTfloat:
		v.data = append(v.data.([]float64), vAdd.data.([]float64)...)
	case DTint:
		v.data = append(v.data.([]int), vAdd.data.([]int)...)
	case DTstring:
		v.data = append(v.data.([]string), vAdd.data.([]string)...)
	case DTdate:
		v.data = append(v.data.([]time.Time), vAdd.data.([]time.Time)...)
	default:
		return fmt.Errorf("unknown type in Vector.AppendVector")
	}

	return nil
}

func (v *Vector) Append(data ...any) error {
	for ind := 0; ind < len(data); ind++ {
		var (
			x  any
			ok bool
		)
		if x, ok = toDataType(data[ind], v.dt); !ok {
			return fmt.Errorf("cannot make %s in Vector.Append", v.dt)
		}

		switch v.dt {
		case DTfloat:
			v.data = append(v.data.([]float64), x.(float64))
		case DTint:
			v.data = append(v.data.([]int), x.(int))
		case DTstring:
			v.data = append(v.data.([]string), x.(string))
		case DTdate:
			v.data = append(v.data.([]time.Time), x.(time.Time))
		}
	}

	return nil
}

func (v *Vector) Copy() *Vector {
	vCopy := &Vector{dt: v.dt}
	switch v.dt {
	case DTfloat:
		x := make([]float64, v.Len())
		copy(x, v.data.([]float64))
		vCopy.data = x
	case DTint:
		x := make([]int, v.Len())
		copy(x, v.data.([]int))
		vCopy.data = x
	case DTstring:
		x := make([]string, v.Len())
		copy(x, v.data.([]string))
		vCopy.data = x
	case DTdate:
		x := make([]time.Time, v.Len())
		copy(x, v.data.([]time.Time))
		vCopy.data = x
	}

	return vCopy
}

// Where returns the rows of v for which keep is true.
func (v *Vector) Where(keep []bool) (*Vector, error) {
	if len(keep) != v.Len() {
		return nil, fmt.Errorf("Where: indicator length %d, vector length %d", len(keep), v.Len())
	}

	var indx []int
	for ind := 0; ind < v.Len(); ind++ {
		if keep[ind] {
			indx = append(indx, ind)
		}
	}

	return v.Take(indx)
}

// Take returns the rows of v in the order given by indx.
func (v *Vector) Take(indx []int) (*Vector, error) {
	outVec := MakeVector(v.VectorType(), len(indx))
	for ind, row := range indx {
		if row < 0 || row >= v.Len() {
			return nil, fmt.Errorf("index %d out of range", row)
		}

		switch v.dt {
		case DTfloat:
			outVec.data.([]float64)[ind] = v.data.([]float64)[row]
		case DTint:
			outVec.data.([]int)[ind] = v.data.([]int)[row]
		case DTstring:
			outVec.data.([]string)[ind] = v.data.([]string)[row]
		case DTdate:
			outVec.data.([]time.Time)[ind] = v.data.([]time.Time)[row]
		}
	}

	return outVec, nil
}

func (v *Vector) Coerce(to DataTypes) (*Vector, error) {
	xOut := MakeVector(to, v.Len())
	for ind := 0; ind < v.Len(); ind++ {
		vOut, ok := toDataType(v.Element(ind), to)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v to %s", v.Element(ind), to)
		}

		switch to {
		case DTfloat:
			xOut.data.([]float64)[ind] = vOut.(float64)
		case DTint:
			xOut.data.([]int)[ind] = vOut.(int)
		case DTstring:
			xOut.data.([]string)[ind] = vOut.(string)
		case DTdate:
			xOut.data.([]time.Time)[ind] = vOut.(time.Time)
		}
	}

	return xOut, nil
}

func toSlc(xIn any, target DataTypes) (any, bool) {
	typSlc := []reflect.Type{reflect.TypeOf([]float64{}), reflect.TypeOf([]int{}), reflect.TypeOf([]string{}), reflect.TypeOf([]time.Time{})}
	toFns := []func(a any) (any, bool){toFloat, toInt, toString, toDate}

	var indx int
	switch target {
	case DTfloat:
		indx = 0
	case DTint:
		indx = 1
	case DTstring:
		indx = 2
	case DTdate:
		indx = 3
	default:
		return nil, false
	}

	outType := typSlc[indx]
	x := reflect.ValueOf(xIn)
	if !x.IsValid() {
		return nil, false
	}

	// nothing to do
	if x.Type() == outType {
		return xIn, true
	}

	toFn := toFns[indx]
	if x.Kind() == reflect.Slice {
		xOut := reflect.MakeSlice(outType, x.Len(), x.Len())
		for ind := 0; ind < x.Len(); ind++ {
			val, ok := toFn(x.Index(ind).Interface())
			if !ok {
				return nil, false
			}

			xOut.Index(ind).Set(reflect.ValueOf(val))
		}

		return xOut.Interface(), true
	}

	// input is not a slice:
	if val, ok := toFn(xIn); ok {
		xOut := reflect.MakeSlice(outType, 1, 1)
		xOut.Index(0).Set(reflect.ValueOf(val))
		return xOut.Interface(), true
	}

	return nil, false
}
