package number

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestCeil(t *testing.T) {
	data := map[string]string{
		"0.10304":     "0.11",
		"0.100000001": "0.11",
		"0.108":       "0.11",
	}

	for k, v := range data {
		t.Run(k, func(t *testing.T) {
			c := Ceil(Decimal(k), 2)
			assert.Equal(t, v, c.String(), "should be ceil")
		})
	}
}

func TestParseWad(t *testing.T) {
	data := map[string]string{
		"0.8":                   "800000000000000000",
		"1":                     "1000000000000000000",
		"0.000000000000000001":  "1",
		"0.0000000000000000019": "1",
		"0.25":                  "250000000000000000",
	}

	for k, v := range data {
		t.Run(k, func(t *testing.T) {
			x, err := ParseWad(k)
			assert.Equal(t, nil, err)
			assert.Equal(t, v, x.Dec())
		})
	}

	_, err := ParseWad("-0.1")
	assert.Equal(t, ErrUnderflow, err)
}

func TestWadString(t *testing.T) {
	assert.Equal(t, "0.8", WadString(MustParseWad("0.8")))
	assert.Equal(t, "0", WadString(nil))
}
