package charset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	sjis, err := EncodeShiftJIS("ステータス,担当名,お客様名")
	require.NoError(t, err)

	cases := []struct {
		name string
		in   []byte
		want Encoding
	}{
		{"utf8", []byte("田中太郎,東京都"), UTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b")...), UTF8},
		{"ascii", []byte("a,b,c"), UTF8},
		{"shift_jis", sjis, ShiftJIS},
		{"garbage", []byte{0xFF, 0xFE, 0xFD}, Auto},
		{"empty", nil, Auto},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.in))
		})
	}
}

func TestShiftJISRoundTrip(t *testing.T) {
	text := "オーナー,ｵｰﾅｰ,おーなー,田中太郎,東京都千代田区1-2-3,03-1234-5678\r\n"
	encoded, err := EncodeShiftJIS(text)
	require.NoError(t, err)
	assert.NotEqual(t, []byte(text), encoded)

	assert.Equal(t, text, Decode(encoded, ShiftJIS))
	assert.Equal(t, text, Decode(encoded, Auto))
}

func TestEncodeShiftJISIsLossyOutsideRepertoire(t *testing.T) {
	encoded, err := EncodeShiftJIS("abc😀def")
	require.NoError(t, err)

	decoded := Decode(encoded, ShiftJIS)
	assert.NotContains(t, decoded, "😀")
	assert.Contains(t, decoded, "abc")
	assert.Contains(t, decoded, "def")
}

func TestDecodeStripsBOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("お客様名")...)
	assert.Equal(t, "お客様名", Decode(in, Auto))
	assert.Equal(t, "お客様名", Decode(in, UTF8))
}

func TestDecodeUndeterminedFallsBackToUTF8(t *testing.T) {
	out := Decode([]byte{'a', 0xFF, 'b'}, Auto)
	assert.Equal(t, "a�b", out)
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{
		"":          Auto,
		"auto":      Auto,
		"UTF-8":     UTF8,
		"sjis":      ShiftJIS,
		"Shift_JIS": ShiftJIS,
		"cp932":     ShiftJIS,
	} {
		got, err := ParseEncoding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseEncoding("latin1")
	assert.Error(t, err)
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, ShiftJIS)
	require.NoError(t, err)
	_, err = w.Write([]byte("顧客"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	expected, err := EncodeShiftJIS("顧客")
	require.NoError(t, err)
	assert.Equal(t, expected, buf.Bytes())

	buf.Reset()
	w, err = NewWriter(&buf, UTF8)
	require.NoError(t, err)
	_, err = w.Write([]byte("顧客"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, append([]byte{0xEF, 0xBB, 0xBF}, []byte("顧客")...), buf.Bytes())
}
