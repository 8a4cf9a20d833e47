package checkday

import (
	"errors"
	"fmt"
	"time"
)

// Zone is the fixed UTC+7 offset every checking day is computed in.
var Zone = time.FixedZone("WIB", 7*3600)

const (
	// RolloverHour is the local hour at which a new checking day starts.
	RolloverHour = 6

	// LabelLayout formats a checking day label.
	LabelLayout = "2006-01-02"

	displayLayout = "2006-01-02 15:04:05"
)

var (
	// ErrInvalidInstant is returned for the zero time.
	ErrInvalidInstant = errors.New("checkday: invalid instant")
	ErrInvalidDate    = errors.New("checkday: invalid date")
)

// Day is a 24h attendance period [Start, End) starting at 06:00 local.
type Day struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Resolve returns the checking day that contains now.
func Resolve(now time.Time) (Day, error) {
	if now.IsZero() {
		return Day{}, ErrInvalidInstant
	}
	local := now.In(Zone)
	y, m, d := local.Date()
	if local.Hour() < RolloverHour {
		y, m, d = time.Date(y, m, d-1, 0, 0, 0, 0, Zone).Date()
	}
	return dayOf(y, m, d), nil
}

// ForDate returns the checking day labelled with a YYYY-MM-DD date.
func ForDate(label string) (Day, error) {
	t, err := time.ParseInLocation(LabelLayout, label, Zone)
	if err != nil {
		return Day{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, label, err)
	}
	y, m, d := t.Date()
	return dayOf(y, m, d), nil
}

func dayOf(y int, m time.Month, d int) Day {
	start := time.Date(y, m, d, RolloverHour, 0, 0, 0, Zone)
	return Day{
		Label: start.Format(LabelLayout),
		Start: start.UTC(),
		End:   start.Add(24 * time.Hour).UTC(),
	}
}

// Contains reports whether t falls inside the half-open window.
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// LocalTime converts t to the checking-day zone.
func LocalTime(t time.Time) time.Time { return t.In(Zone) }

// FormatLocal renders t as local wall-clock time for display.
func FormatLocal(t time.Time) string { return t.In(Zone).Format(displayLayout) }
