package database

import "strings"

// Rebind переводит плейсхолдеры вида :N в формат $N для pgx.
// Касты вида ::type не трогает.
func Rebind(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == ':' && i+1 < len(sql) && isDigit(sql[i+1]) && (i == 0 || sql[i-1] != ':') {
			b.WriteByte('$')
			continue
		}
		b.WriteByte(c)
	}

	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
