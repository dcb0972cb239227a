package database

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgen-mcp-server/internal/domain"
)

func TestEscape(t *testing.T) {
	when := time.Date(2015, 7, 4, 9, 5, 1, 0, time.UTC)
	text := "BRCA1"

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"plain string", "BRCA1", `"BRCA1"`},
		{"double quote", `say "hi"`, `"say \"hi\""`},
		{"single quote", "O'Brien", `"O\'Brien"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"string pointer", &text, `"BRCA1"`},
		{"nil", nil, "NULL"},
		{"nil string pointer", (*string)(nil), "NULL"},
		{"time", when, `"2015-07-04 09:05:01"`},
		{"int", 672, "672"},
		{"int64", int64(15041), "15041"},
		{"float", 0.25, "0.25"},
		{"bool", true, "1"},
		{"bytes", []byte("x"), `"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.value))
		})
	}

	assert.Equal(t, "null", InsertLiteral(nil))
	assert.Equal(t, `"x"`, InsertLiteral("x"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2016-01-02 03:04:05", FormatDate(time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestTruncate(t *testing.T) {
	got, err := Truncate("abcdef", 5)
	require.NoError(t, err)
	assert.Equal(t, "ab...", got)

	got, err = Truncate("abc", 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	got, err = Truncate("short", 200)
	require.NoError(t, err)
	assert.Equal(t, "short", got)

	got, err = Truncate(strings.Repeat("x", 500), 200)
	require.NoError(t, err)
	assert.Len(t, got, 200)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncate_NeverExceedsMaxlen(t *testing.T) {
	texts := []string{"", "a", "abcd", "abcdefghijklmnopqrstuvwxyz", strings.Repeat("é", 40), "Breast cancer 1, early onset"}
	for _, text := range texts {
		for maxlen := 3; maxlen <= 30; maxlen++ {
			got, err := Truncate(text, maxlen)
			require.NoError(t, err)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), maxlen, "text %q maxlen %d", text, maxlen)
		}
	}
}

func TestTruncate_MaxlenBelowMinimum(t *testing.T) {
	for _, maxlen := range []int{-1, 0, 1, 2} {
		_, err := Truncate("abcdef", maxlen)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}

func TestStrOrNull(t *testing.T) {
	got, err := StrOrNull(nil, 10)
	require.NoError(t, err)
	assert.Equal(t, "null", got)

	s := "Breast cancer 1"
	got, err = StrOrNull(&s, 10)
	require.NoError(t, err)
	assert.Equal(t, `"Breast ..."`, got)

	_, err = StrOrNull(&s, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRender(t *testing.T) {
	assert.Equal(t,
		`SELECT * FROM gene_info WHERE Symbol = "BRCA1" AND GeneID = 672`,
		Render("SELECT * FROM gene_info WHERE Symbol = ? AND GeneID = ?", "BRCA1", 672))

	assert.Equal(t,
		`SELECT '?' AS q, x FROM t WHERE a = NULL`,
		Render("SELECT '?' AS q, x FROM t WHERE a = ?", nil))

	assert.Equal(t, "SELECT 1", Render("SELECT 1"))
	assert.Equal(t, `SELECT "a", ?`, Render("SELECT ?, ?", "a"))
	assert.Equal(t, `SELECT 'it\'s ?', 7`, Render(`SELECT 'it\'s ?', ?`, 7))
}
