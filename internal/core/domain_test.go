package core

import (
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in  string
		iso string
		ok  bool
	}{
		{"2024-01-01", "2024-01-01", true},
		{"2024-12-31", "2024-12-31", true},
		{"2024-01-02T15:04:05.000Z", "2024-01-02", true}, // timestamp truncates to day
		{" 2024-03-05 ", "2024-03-05", true},
		{"", "", false},
		{"01/02/2024", "", false},
		{"2024-13-01", "", false},
	}
	for i, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if tc.ok && d.ISO() != tc.iso {
			t.Fatalf("case %d iso=%q want %q", i, d.ISO(), tc.iso)
		}
	}
}

func TestDateRoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	parsed, err := ParseDate(d.ISO())
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !parsed.Equal(d.Time) {
		t.Fatalf("round trip changed date: %v != %v", parsed, d)
	}
	if (Date{}).ISO() != "" {
		t.Fatalf("zero date must render empty")
	}
}

func TestFieldsValidate(t *testing.T) {
	good := Fields{OwnerID: "u1", Amount: 100, Date: "2024-01-01"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		f     Fields
		field string
	}{
		{Fields{OwnerID: "", Amount: 100, Date: "2024-01-01"}, "ownerId"},
		{Fields{OwnerID: "u1", Amount: 99, Date: "2024-01-01"}, "amount"},
		{Fields{OwnerID: "u1", Amount: 50, Date: "2024-01-01"}, "amount"},
		{Fields{OwnerID: "u1", Amount: 100, Date: ""}, "date"},
		{Fields{OwnerID: "u1", Amount: 100, Date: "not-a-date"}, "date"},
	}
	for i, tc := range cases {
		err := tc.f.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		verr := AsValidation(err)
		if verr == nil {
			t.Fatalf("case %d expected ValidationError, got %T", i, err)
		}
		if verr.Field(tc.field) == "" {
			t.Fatalf("case %d expected message on field %q, got %v", i, tc.field, verr.Fields)
		}
	}
}

func TestScopeMatches(t *testing.T) {
	if !ScopeAll.Matches("anyone") {
		t.Fatalf("all scope must match every owner")
	}
	s := ScopeUser("u1")
	if !s.Matches("u1") || s.Matches("u2") {
		t.Fatalf("user scope must match only its owner")
	}
	if ScopeAll.String() != "all" || s.String() != "user:u1" {
		t.Fatalf("unexpected scope strings: %q %q", ScopeAll, s)
	}
}
