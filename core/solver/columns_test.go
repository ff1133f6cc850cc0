package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(cs ColumnSet) map[string]float64 {
	out := make(map[string]float64)
	cs.Each(func(n string, v float64) { out[n] = v })
	return out
}

func TestDecodeJSONList(t *testing.T) {
	data := `{"Status":"Optimal","ObjectiveValue":-1.5,"Columns":[
		{"Name":"grid_to_load_0","Primal":500},
		{"name":"soc_0","value":2500.25}
	]}`
	res, err := DecodeJSON([]byte(data))
	require.NoError(t, err)
	assert.True(t, res.Status.IsOptimal())
	assert.Equal(t, -1.5, res.ObjectiveValue)
	_, isList := res.Columns.(ColumnList)
	assert.True(t, isList)
	assert.Equal(t, map[string]float64{"grid_to_load_0": 500, "soc_0": 2500.25}, collect(res.Columns))
}

func TestDecodeJSONMap(t *testing.T) {
	data := `{"status":"Time limit reached","objective_value":3,"columns":{
		"grid_to_battery_1":{"Primal":1000},
		"pv_to_grid_0":12.5,
		"soc_1":{"x":7}
	}}`
	res, err := DecodeJSON([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, Status("Time limit reached"), res.Status)
	assert.False(t, res.Status.IsOptimal())
	_, isMap := res.Columns.(ColumnMap)
	assert.True(t, isMap)
	assert.Equal(t, 3, res.Columns.Len())
	assert.Equal(t, 1000.0, collect(res.Columns)["grid_to_battery_1"])
	assert.Equal(t, 7.0, collect(res.Columns)["soc_1"])
}

func TestDecodeJSONUnsupported(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"Status":"Optimal","Columns":"nope"}`))
	assert.True(t, errors.Is(err, ErrUnsupportedShape))

	_, err = DecodeJSON([]byte(`{"Columns":[{"Name":"a"}]}`))
	assert.True(t, errors.Is(err, ErrUnsupportedShape))
}

func TestColumnMapOrder(t *testing.T) {
	m := ColumnMap{"b": 2, "a": 1, "c": 3}
	var names []string
	m.Each(func(n string, _ float64) { names = append(names, n) })
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
