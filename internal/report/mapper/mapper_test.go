package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15-06-2023", "2023-06-15"},
		{"2023-06-15", "2023-06-15"},
		{"2023-06-15T10:22:31Z", "2023-06-15"},
		{"2023-06-15 10:22:31", "2023-06-15"},
		{"  01-01-1990 ", "1990-01-01"},
		{"Jun 2023", "Jun 2023"},
		{"15/06/2023", "15/06/2023"},
		{"", Unavailable},
		{"   ", Unavailable},
		{Unavailable, Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestOptionalDate(t *testing.T) {
	assert.Nil(t, OptionalDate(""))
	assert.Nil(t, OptionalDateOf(gjson.Get(`{}`, "CLOSED-DATE")))

	d := OptionalDate("31-12-2021")
	require.NotNil(t, d)
	assert.Equal(t, "2021-12-31", *d)
}

func TestNumber(t *testing.T) {
	doc := `{"n": 1250.5, "s": "1,23,456", "bad": "abc", "null": null, "neg": "-42", "b": true, "inf": "Inf"}`

	tests := []struct {
		path string
		want *float64
	}{
		{"n", f(1250.5)},
		{"s", f(123456)},
		{"neg", f(-42)},
		{"bad", nil},
		{"null", nil},
		{"missing", nil},
		{"b", nil},
		{"inf", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(gjson.Get(doc, tt.path)))
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Nil(t, ParseNumber(""))
	assert.Nil(t, ParseNumber("NaN"))
	assert.Equal(t, f(0), ParseNumber("0"))
	assert.Equal(t, f(1000000), ParseNumber(" 1,000,000 "))
}

func TestSeq(t *testing.T) {
	doc := `{"one": {"a": 1}, "many": [{"a": 1}, {"a": 2}], "none": null}`

	assert.Len(t, Seq(gjson.Get(doc, "one")), 1)
	assert.Len(t, Seq(gjson.Get(doc, "many")), 2)
	assert.Empty(t, Seq(gjson.Get(doc, "none")))
	assert.Empty(t, Seq(gjson.Get(doc, "missing")))
	assert.Equal(t, int64(1), Seq(gjson.Get(doc, "one"))[0].Get("a").Int())
}

func TestTextAndAmount(t *testing.T) {
	doc := `{"name": "  PURAN ", "blank": " ", "obj": {"x": 1}, "amt": "25,000", "num": 1500}`

	assert.Equal(t, "PURAN", Text(gjson.Get(doc, "name")))
	assert.Equal(t, NotReported, Text(gjson.Get(doc, "blank")))
	assert.Equal(t, NotReported, Text(gjson.Get(doc, "obj")))
	assert.Equal(t, NotReported, Text(gjson.Get(doc, "missing")))
	assert.Equal(t, "1500", Text(gjson.Get(doc, "num")))

	assert.Equal(t, "25,000", Amount(gjson.Get(doc, "amt")))
	assert.Equal(t, "1,500", Amount(gjson.Get(doc, "num")))
	assert.Equal(t, NoAmount, Amount(gjson.Get(doc, "missing")))

	assert.Equal(t, "fallback", TextOr("", "  ", "fallback"))
	assert.Equal(t, NotReported, TextOr())
}

func TestSum(t *testing.T) {
	assert.Equal(t, 0.0, Sum(nil))
	assert.Equal(t, 350.0, Sum([]*float64{f(100), nil, f(250)}))
}

func TestTerm(t *testing.T) {
	assert.Equal(t, "Standard", Term("STD"))
	assert.Equal(t, "Loss", Term("lss"))
	assert.Equal(t, "Overdue Amount", Term("OverdueAmount"))
	assert.Equal(t, "High Credit", Term("HighCredit"))
	assert.Equal(t, "SomeNewVendorField", Term("SomeNewVendorField"))
}

func f(v float64) *float64 { return &v }
