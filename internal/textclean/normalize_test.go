package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNoise(t *testing.T) {
	cases := []struct {
		name string
		line string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", " \t  ", true},
		{"single char", "x", true},
		{"single char padded", "   x   ", true},
		{"short token", "ab", true},
		{"several short tokens", "a bc de", true},
		{"three char tokens", "abc def ghi", true},
		{"one long token", "here", false},
		{"long token among short", "a b here", false},
		{"pipes count toward token length", "a|b|c", false},
		{"multibyte runes counted once", "äöü", true},
		{"multibyte long token", "größe", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsNoise(tc.line))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("nil and empty input", func(t *testing.T) {
		assert.Equal(t, "", Normalize(nil))
		assert.Equal(t, "", Normalize([]string{}))
	})

	t.Run("drops short and single-char lines", func(t *testing.T) {
		assert.Equal(t, "hello world", Normalize([]string{"ab", "hello world", "x"}))
	})

	t.Run("strips pipes without inserting spaces", func(t *testing.T) {
		assert.Equal(t, "abc is here", Normalize([]string{"a|b|c is here", "ok"}))
	})

	t.Run("preserves order and joins with one space", func(t *testing.T) {
		got := Normalize([]string{"  first line  ", "", "second line", "zz", "third line"})
		assert.Equal(t, "first line second line third line", got)
	})

	t.Run("all noise yields empty string", func(t *testing.T) {
		assert.Equal(t, "", Normalize([]string{"", "a", "bc de", "  "}))
	})

	t.Run("line made only of pipes is dropped", func(t *testing.T) {
		assert.Equal(t, "total due", Normalize([]string{"||||", "total due"}))
	})

	t.Run("no leading or trailing space", func(t *testing.T) {
		got := Normalize([]string{"| invoice |", "amount due |"})
		assert.Equal(t, "invoice amount due", got)
		assert.Equal(t, strings.TrimSpace(got), got)
	})
}

func TestNormalizeNeverKeepsNoiseOrPipes(t *testing.T) {
	lines := []string{"RECEIPT |", "a", "Store #42 | Main St", "xx yy", "|", "Thank you"}
	got := Normalize(lines)

	assert.NotContains(t, got, "|")
	assert.Equal(t, "RECEIPT Store #42  Main St Thank you", got)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := [][]string{
		{"ab", "hello world", "x"},
		{"a|b|c is here", "ok"},
		{"Line one here", "and line two", "tail |"},
	}
	for _, lines := range inputs {
		first := Normalize(lines)
		require.NotEmpty(t, first)
		assert.Equal(t, first, Normalize([]string{first}))
	}
}

func TestNormalizeText(t *testing.T) {
	raw := "ab\r\nhello world\rsecond part\nx\n"
	assert.Equal(t, "hello world second part", NormalizeText(raw))
	assert.Equal(t, "", NormalizeText(""))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, SplitLines("a\r\nb\rc\nd"))

	t.Run("uncommon separators", func(t *testing.T) {
		raw := "a\vb\fc\x1cd\x1de\x1ef\u0085g\u2028h\u2029i"
		assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, SplitLines(raw))
	})

	t.Run("separators feed normalization", func(t *testing.T) {
		assert.Equal(t, "Total 12.00 Thank you", NormalizeText("Total 12.00\u2028x\vThank you"))
	})
}
