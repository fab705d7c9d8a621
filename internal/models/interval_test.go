package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw     string
		want    MinuteOfDay
		wantErr bool
	}{
		{raw: "00:00", want: 0},
		{raw: "08:00", want: 480},
		{raw: "23:59", want: 1439},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
		{raw: "", wantErr: true},
		// Truncation and padding shortcuts are rejected, not silently repaired.
		{raw: "12:345", wantErr: true},
		{raw: "7:5", wantErr: true},
		{raw: "7:05", wantErr: true},
		{raw: "07:5", wantErr: true},
		{raw: "0800", wantErr: true},
		{raw: "08:00 ", wantErr: true},
		{raw: "0a:00", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseClock(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMinuteOfDayString(t *testing.T) {
	assert.Equal(t, "08:05", MinuteOfDay(485).String())
	assert.Equal(t, "00:00", MinuteOfDay(0).String())
}

func TestMinuteOfDayJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(MinuteOfDay(585))
	require.NoError(t, err)
	assert.Equal(t, `"09:45"`, string(raw))

	var m MinuteOfDay
	require.NoError(t, json.Unmarshal([]byte(`"11:15"`), &m))
	assert.Equal(t, MinuteOfDay(675), m)

	require.Error(t, json.Unmarshal([]byte(`"25:00"`), &m))
}

func TestParseTimeInterval(t *testing.T) {
	interval, err := ParseTimeInterval("09:45", "11:15")
	require.NoError(t, err)
	assert.Equal(t, MinuteOfDay(585), interval.Start)
	assert.Equal(t, MinuteOfDay(675), interval.End)
	assert.Equal(t, 90, interval.Minutes())
	assert.Equal(t, "09:45-11:15", interval.String())
}

func TestTimeIntervalValidate(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "valid 90 minutes", start: "08:00", end: "09:30"},
		{name: "minimum duration", start: "08:00", end: "08:30"},
		{name: "maximum duration", start: "08:00", end: "12:00"},
		{name: "start equals end", start: "08:00", end: "08:00", wantErr: true},
		{name: "start after end", start: "09:00", end: "08:00", wantErr: true},
		{name: "too short", start: "08:00", end: "08:29", wantErr: true},
		{name: "too long", start: "08:00", end: "12:01", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTimeInterval(tc.start, tc.end)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimeIntervalOverlaps(t *testing.T) {
	mustInterval := func(start, end string) TimeInterval {
		interval, err := ParseTimeInterval(start, end)
		require.NoError(t, err)
		return interval
	}

	tests := []struct {
		name string
		a    TimeInterval
		b    TimeInterval
		want bool
	}{
		{name: "partial overlap", a: mustInterval("09:00", "10:30"), b: mustInterval("10:00", "11:30"), want: true},
		{name: "containment", a: mustInterval("08:00", "12:00"), b: mustInterval("09:00", "10:00"), want: true},
		{name: "identical", a: mustInterval("09:00", "10:30"), b: mustInterval("09:00", "10:30"), want: true},
		{name: "back to back", a: mustInterval("09:00", "10:30"), b: mustInterval("10:30", "12:00"), want: false},
		{name: "disjoint", a: mustInterval("08:00", "09:30"), b: mustInterval("11:30", "13:00"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			// Overlap is symmetric.
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a))
		})
	}
}
