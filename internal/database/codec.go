package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/medgen-mcp-server/internal/domain"
)

// DateLayout is the warehouse's DATETIME text format.
const DateLayout = "2006-01-02 15:04:05"

// NullLiteral renders nil in clauses; insert value lists use lowercase null.
const (
	NullLiteral       = "NULL"
	InsertNullLiteral = "null"
)

// Same set of characters MySQL's mysql_real_escape_string handles.
var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	`'`, `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

// EscapeString escapes s and wraps it in double quotes.
func EscapeString(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Escape renders a value as SQL literal text. Statements sent to the server
// bind values through placeholders; literals are only used to render bound
// statements for logs and error messages.
func Escape(value interface{}) string {
	return escape(value, NullLiteral)
}

// InsertLiteral is Escape with the lowercase null token used in value lists.
func InsertLiteral(value interface{}) string {
	return escape(value, InsertNullLiteral)
}

func escape(value interface{}, null string) string {
	switch v := value.(type) {
	case nil:
		return null
	case string:
		return EscapeString(v)
	case *string:
		if v == nil {
			return null
		}
		return EscapeString(*v)
	case []byte:
		return EscapeString(string(v))
	case time.Time:
		return `"` + FormatDate(v) + `"`
	case *time.Time:
		if v == nil {
			return null
		}
		return `"` + FormatDate(*v) + `"`
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return EscapeString(v.String())
	default:
		return fmt.Sprint(v)
	}
}

// Truncate shortens text to at most maxlen characters, replacing the tail
// with "..." when it had to cut.
func Truncate(text string, maxlen int) (string, error) {
	if maxlen < 3 {
		return "", domain.InvalidArgument("maxlen must be at least 3, got %d", maxlen)
	}
	if utf8.RuneCountInString(text) <= maxlen {
		return text, nil
	}
	runes := []rune(text)
	return string(runes[:maxlen-3]) + "...", nil
}

// StrOrNull renders s truncated to maxlen as a quoted literal, or null for a
// nil pointer.
func StrOrNull(s *string, maxlen int) (string, error) {
	if s == nil {
		return InsertNullLiteral, nil
	}
	truncated, err := Truncate(*s, maxlen)
	if err != nil {
		return "", err
	}
	return EscapeString(truncated), nil
}

// Render substitutes args into the ? placeholders of query as literals.
func Render(query string, args ...interface{}) string {
	if len(args) == 0 {
		return query
	}
	return substitutePlaceholders(query, func(i int) string {
		if i < len(args) {
			return Escape(args[i])
		}
		return "?"
	})
}

// substitutePlaceholders replaces every ? outside quoted literals and
// identifiers with repl(n), n counting from zero.
func substitutePlaceholders(query string, repl func(int) string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	var quote rune
	escaped := false
	n := 0
	for _, r := range query {
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
			b.WriteRune(r)
		case r == '\'' || r == '"' || r == '`':
			quote = r
			b.WriteRune(r)
		case r == '?':
			b.WriteString(repl(n))
			n++
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
