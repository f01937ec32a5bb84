package csv

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const exportDateLayout = "2006/01/02"

var dateSeparators = strings.NewReplacer("年", "/", "月", "/", "日", "", "-", "/", ".", "/")

// ParseDate accepts YYYY/MM/DD, YYYY-MM-DD and YYYY年MM月DD日, with or
// without zero padding and with an optional trailing time. Anything it
// cannot parse yields now.
func ParseDate(s string, now time.Time) time.Time {
	fields := strings.Fields(norm.NFKC.String(s))
	if len(fields) == 0 {
		return now
	}
	t, err := time.ParseInLocation("2006/1/2", dateSeparators.Replace(fields[0]), now.Location())
	if err != nil {
		return now
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(exportDateLayout)
}
