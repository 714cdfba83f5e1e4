package gate

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// FromQuery reads the action gate signals from request parameters. A
// repeated name counts with its last value, which is the one the wiki uses.
func FromQuery(q url.Values) AccessRequest {
	return AccessRequest{
		Type:   last(q, "type"),
		Action: last(q, "action"),
		Diff:   ParseID(last(q, "diff")),
		OldID:  ParseID(last(q, "oldid")),
	}
}

func last(q url.Values, key string) string {
	vs := q[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

// ParseID converts a revision id parameter the lenient way wikis do: leading
// whitespace and sign are accepted, then as many digits as are present.
// "12abc" is 12, "abc" and "" are 0, "prev" is 0. Out of range saturates.
func ParseID(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	if s == "" {
		return 0
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 0)
	if err != nil {
		// digits only, so this is a range error
		if neg {
			return math.MinInt
		}
		return math.MaxInt
	}
	if neg {
		return int(-n)
	}
	return int(n)
}
