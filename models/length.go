package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CSSLength is a page length given either as a CSS string ("1cm", "0.5in",
// "20px") or as a bare JSON number meaning CSS pixels. Numbers are kept in
// their decimal text form so both spellings parse the same way downstream.
type CSSLength string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (l *CSSLength) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = CSSLength(s)
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return InvalidInput(fmt.Sprintf("invalid length %s: want a number of pixels or a CSS length string", data))
	}
	*l = CSSLength(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}
