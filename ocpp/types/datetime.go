package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// DateTimeFormat is used for JSON marshalling of all OCPP timestamps.
const DateTimeFormat = time.RFC3339

// DateTime wraps a time.Time, accepting any ISO 8601 representation on
// the wire while always emitting RFC3339.
type DateTime struct {
	time.Time
}

// NewDateTime Creates a new DateTime struct, embedding a time.Time struct.
func NewDateTime(time time.Time) *DateTime {
	return &DateTime{Time: time}
}

func (dt *DateTime) UnmarshalJSON(input []byte) error {
	strInput := strings.Trim(string(input), `"`)
	newTime, err := iso8601.ParseString(strInput)
	if err != nil {
		return err
	}
	dt.Time = newTime
	return nil
}

func (dt DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.Time.Format(DateTimeFormat))
}

func (dt *DateTime) FormatTimestamp() string {
	return dt.Time.Format(DateTimeFormat)
}

func (dt *DateTime) Before(other *DateTime) bool {
	return dt.Time.Before(other.Time)
}

func (dt *DateTime) After(other *DateTime) bool {
	return dt.Time.After(other.Time)
}
