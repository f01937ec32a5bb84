package csv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, '\t', DetectDelimiter("a\tb\tc\td\te\tf,g,h"))
	assert.Equal(t, ',', DetectDelimiter("a\tb\tc,d,e,f,g,h"))
	assert.Equal(t, ',', DetectDelimiter("a\tb\tc,d,e"))
	assert.Equal(t, ',', DetectDelimiter(""))
}

func TestRowsTabDelimited(t *testing.T) {
	rows, diags := ParseRows("オーナー\t\t\t目黒\t田中太郎\n見込み\t\t\t佐藤\t鈴木花子\n")
	require.Empty(t, diags)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"オーナー", "", "", "目黒", "田中太郎"}, rows[0].Fields)
	assert.Equal(t, "鈴木花子", rows[1].Fields[4])
}

func TestRowsLineNumbersCountBlankLines(t *testing.T) {
	rows, diags := ParseRows("a,b\r\n\r\nc,d\r\n\n\ne,f")
	require.Empty(t, diags)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, 6, rows[2].Line)
}

func TestRowsBareCarriageReturns(t *testing.T) {
	rows, _ := ParseRows("a,b\rc,d\r")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"c", "d"}, rows[1].Fields)
}

func TestRowsIsRestartable(t *testing.T) {
	seq := Rows("a,b\nc,d\n")
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())
}

func TestRowsStopsWhenConsumerStops(t *testing.T) {
	n := 0
	for range Rows("a\nb\nc\n") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestQuotingRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"comma,inside",
		`quote"inside`,
		`""`,
		"line\nbreak",
		"mixed, \"quoted\"\nand more,",
		" leading space",
		"東京都千代田区, 1-2-3",
		"a\rb",
		"windows\r\nnotes\r\n",
		"trailing\r",
		"\r\n",
	}
	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			rows, diags := ParseRows(SerializeRow([]string{v}, ','))
			require.Empty(t, diags)
			require.Len(t, rows, 1)
			assert.Equal(t, []string{v}, rows[0].Fields)
		})
	}
}

func TestRowsMultiLineQuotedField(t *testing.T) {
	rows, diags := ParseRows("a,\"one\r\ntwo\nthree\",b\r\nc,d\r\n")
	require.Empty(t, diags)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "one\r\ntwo\nthree", "b"}, rows[0].Fields)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, []string{"c", "d"}, rows[1].Fields)
	assert.Equal(t, 4, rows[1].Line)
}

func TestRowsUnterminatedQuoteResumesOnNextLine(t *testing.T) {
	text := "オーナー,,,目黒,\"田中太郎,,,,,\n" +
		"オーナー,,,目黒,佐藤花子\n" +
		"オーナー,,,目黒,鈴木一郎\n" +
		"オーナー,,,目黒,高橋次郎\n"

	rows, diags := ParseRows(text)
	assert.Equal(t, []string{"row 1: unterminated quote"}, diags)
	require.Len(t, rows, 3)
	assert.Equal(t, "佐藤花子", rows[0].Fields[4])
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "高橋次郎", rows[2].Fields[4])
}

func TestRowsQuoteSpanningTooManyLines(t *testing.T) {
	text := "a,\"open\n" + strings.Repeat("x\n", maxRecordLines) + "closed\",b\n"

	rows, diags := ParseRows(text)
	require.NotEmpty(t, diags)
	assert.Equal(t, "row 1: unterminated quote", diags[0])
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"x"}, rows[0].Fields)
	assert.Equal(t, 2, rows[0].Line)
}

func TestRowsJoinedRecordBeyondColumnCount(t *testing.T) {
	text := "a,\"open\nstill\"" + strings.Repeat(",f", ColumnCount) + "\nnext,row\n"

	rows, diags := ParseRows(text)
	assert.Equal(t, []string{"row 1: unterminated quote"}, diags)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, []string{"next", "row"}, rows[1].Fields)
}

func TestRowsLazyQuotes(t *testing.T) {
	rows, diags := ParseRows("x,\"broken\"field\",y\r\nab\"c,d\r\n")
	require.Empty(t, diags)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x", "broken\"field\"", "y"}, rows[0].Fields)
	assert.Equal(t, []string{"ab\"c", "d"}, rows[1].Fields)
}

func TestSerializeRowUsesCRLF(t *testing.T) {
	out := SerializeRow([]string{"a", "b,c"}, ',')
	assert.Equal(t, "a,\"b,c\"\r\n", out)
	assert.True(t, strings.HasSuffix(SerializeRow([]string{"x"}, '\t'), "\r\n"))
}

func TestSliceRows(t *testing.T) {
	in := []Row{{Line: 2, Fields: []string{"a"}}, {Line: 5, Fields: []string{"b"}}}
	var got []Row
	for row, err := range SliceRows(in) {
		require.NoError(t, err)
		got = append(got, row)
	}
	assert.Equal(t, in, got)
}
