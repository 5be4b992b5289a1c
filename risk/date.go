package risk

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// jsonDate is a calendar date that serializes as a bare YYYY-MM-DD string.
type jsonDate struct {
	time.Time
}

func newDate(t time.Time) jsonDate {
	y, m, d := t.UTC().Date()
	return jsonDate{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d jsonDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	t, err := time.ParseInLocation(dateLayout, s[1:len(s)-1], time.UTC)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
