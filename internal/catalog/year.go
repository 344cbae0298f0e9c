package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Year is a publication year. It decodes from a JSON integer, a numeric
// string such as "1965" (what HTML form fields produce), or a number with
// no fractional part such as 1965.0.
type Year int

// UnmarshalJSON implements json.Unmarshaler.
func (y *Year) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return yearError()
		}
		text = strings.TrimSpace(s)
	}

	if n, err := strconv.Atoi(text); err == nil {
		*y = Year(n)
		return nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return yearError()
	}
	*y = Year(int(f))
	return nil
}

func yearError() *Error {
	return validationError("publicationYear", "publicationYear must be an integer")
}
