package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNightsBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{name: "same day", from: "2024-07-01", to: "2024-07-01", want: 0},
		{name: "three nights", from: "2024-07-03", to: "2024-07-06", want: 3},
		{name: "across month", from: "2024-06-29", to: "2024-07-02", want: 3},
		{name: "leap day", from: "2024-02-28", to: "2024-03-01", want: 2},
		{name: "non leap year", from: "2023-02-28", to: "2023-03-01", want: 1},
		// Europe switches to summer time on 2024-03-31; civil dates must not notice.
		{name: "across DST switch", from: "2024-03-30", to: "2024-04-02", want: 3},
		{name: "reversed", from: "2024-07-06", to: "2024-07-03", want: -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NightsBetween(MustParseDate(tt.from), MustParseDate(tt.to))
			if got != tt.want {
				t.Errorf("NightsBetween(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDateOfDropsClockAndZone(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	d := DateOf(time.Date(2024, 7, 3, 23, 30, 0, 0, loc))
	if d.String() != "2024-07-03" {
		t.Fatalf("DateOf() = %s, want 2024-07-03", d)
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-07-10"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.D.Equal(NewDate(2024, time.July, 10)) {
		t.Fatalf("got %s", v.D)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"d":"2024-07-10"}` {
		t.Fatalf("marshal = %s", out)
	}
	if err := json.Unmarshal([]byte(`{"d":"10.07.2024"}`), &v); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestMinMaxDate(t *testing.T) {
	a := MustParseDate("2024-07-01")
	b := MustParseDate("2024-07-05")
	if !MaxDate(a, b).Equal(b) || !MinDate(a, b).Equal(a) {
		t.Fatal("min/max mismatch")
	}
	if !a.AddDays(4).Equal(b) {
		t.Fatal("AddDays mismatch")
	}
}
