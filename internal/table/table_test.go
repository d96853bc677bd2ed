package table

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsDuplicateAndEmptyColumns(t *testing.T) {
	t.Parallel()

	_, err := New("t", []string{"id", "x", "id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate column "id"`)

	_, err = New("t", []string{"id", ""})
	require.Error(t, err)

	tb, err := New("t", []string{"id", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x"}, tb.Columns)
	assert.Equal(t, "(0, 2)", tb.Shape())
}

func TestAppend_PadsShortRows(t *testing.T) {
	t.Parallel()

	tb := MustNew("t", []string{"a", "b", "c"})
	require.NoError(t, tb.Append([]any{int64(1)}))
	assert.Equal(t, []any{int64(1), nil, nil}, tb.Rows[0])

	require.Error(t, tb.Append([]any{1, 2, 3, 4}))
}

func TestClone_DoesNotShareRows(t *testing.T) {
	t.Parallel()

	tb := MustNew("t", []string{"a"})
	require.NoError(t, tb.Append([]any{"x"}))

	cp := tb.Clone()
	cp.Rows[0][0] = "y"
	cp.Columns[0] = "z"

	assert.Equal(t, "x", tb.Rows[0][0])
	assert.Equal(t, "a", tb.Columns[0])
}

func TestColumn_MissingColumnError(t *testing.T) {
	t.Parallel()

	tb := MustNew("quotes.csv", []string{"a"})
	_, err := tb.Column("nope")

	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "nope", mce.Column)
	assert.Equal(t, "quotes.csv", mce.Table)
	assert.Equal(t, `column "nope" not found in table "quotes.csv"`, err.Error())

	side := &MissingColumnError{Table: "v.csv", Column: "abi", Side: "right"}
	assert.Equal(t, `column "abi" not found in right table "v.csv"`, side.Error())
}

func TestInferKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []any
		want Kind
	}{
		{"all_null", []any{nil, nil}, KindNull},
		{"empty", nil, KindNull},
		{"ints_as_text", []any{"1", " 2 ", nil, "-3"}, KindInt},
		{"typed_ints", []any{int64(1), int64(2)}, KindInt},
		{"floats", []any{"1", "2.5", nil}, KindFloat},
		{"mixed_typed_numbers", []any{int64(1), 2.5}, KindFloat},
		{"nan_token_is_text", []any{"1", "NaN"}, KindText},
		{"bools", []any{"true", "False", nil}, KindBool},
		{"typed_bools", []any{true, false}, KindBool},
		{"yes_no_is_text", []any{"yes", "no"}, KindText},
		{"text", []any{"a", "1"}, KindText},
		{"bool_and_number", []any{true, int64(1)}, KindText},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := InferKind(tt.in); got != tt.want {
				t.Fatalf("InferKind(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCoerce_ConvertsPerColumnAndKeepsInput(t *testing.T) {
	t.Parallel()

	tb := MustNew("t", []string{"i", "f", "b", "s", "n"})
	require.NoError(t, tb.Append([]any{"1", "1.5", "true", "x", nil}))
	require.NoError(t, tb.Append([]any{nil, "2", "false", "7", nil}))

	out := Coerce(tb)

	assert.Equal(t, []any{int64(1), 1.5, true, "x", nil}, out.Rows[0])
	assert.Equal(t, []any{nil, 2.0, false, "7", nil}, out.Rows[1])

	// input untouched
	assert.Equal(t, "1", tb.Rows[0][0])
	assert.Equal(t, []Kind{KindInt, KindFloat, KindBool, KindText, KindNull}, ColumnKinds(tb))
}

func TestAsFloat(t *testing.T) {
	t.Parallel()

	f, ok := AsFloat(int64(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	f, ok = AsFloat(" 2.5 ")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = AsFloat(true)
	assert.False(t, ok)
	_, ok = AsFloat(math.NaN())
	assert.False(t, ok)
	_, ok = AsFloat("inf")
	assert.False(t, ok)
	_, ok = AsFloat(nil)
	assert.False(t, ok)
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{"nil", nil, "", false},
		{"string_trimmed", "  123 ", "123", true},
		{"int64", int64(123), "123", true},
		{"int", 42, "42", true},
		{"integral_float", 123.0, "123", true},
		{"fractional_float", 1.25, "1.25", true},
		{"bool", true, "true", true},
		{"bytes", []byte(" ab "), "ab", true},
		{"leading_zero_text_kept", "0123", "0123", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeKey(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("NormalizeKey(%#v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", FormatCell(nil))
	assert.Equal(t, " a ", FormatCell(" a "))
	assert.Equal(t, "40", FormatCell(40.0))
	assert.Equal(t, "0.1", FormatCell(0.1))
	assert.Equal(t, "7", FormatCell(int64(7)))
	assert.Equal(t, "false", FormatCell(false))
}

func TestUniqueName(t *testing.T) {
	t.Parallel()

	taken := map[string]struct{}{"a": {}, "a_2": {}}
	assert.Equal(t, "b", UniqueName("b", taken))
	assert.Equal(t, "a_3", UniqueName("a", taken))
}
