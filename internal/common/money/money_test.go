package money

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "400", want: 40000},
		{in: "400.5", want: 40050},
		{in: "400.50", want: 40050},
		{in: "0.01", want: 1},
		{in: "0", want: 0},
		{in: "-12.34", want: -1234},
		{in: "92233720368547758.07", want: 9223372036854775807},
		{in: "92233720368547758.08", wantErr: true},
		{in: "100000000000000000000", wantErr: true},
		{in: "-100000000000000000000", wantErr: true},
		{in: "400.505", wantErr: true},
		{in: "0.001", wantErr: true},
		{in: "1e-3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "NaN", wantErr: true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got.Minor() != tt.want {
			t.Errorf("Parse(%q) = %d minor, want %d", tt.in, got.Minor(), tt.want)
		}
	}
}

func TestString(t *testing.T) {
	if s := FromMinor(40050).String(); s != "400.50" {
		t.Fatalf("String() = %q, want %q", s, "400.50")
	}
	if s := FromMajor(20000).String(); s != "20000.00" {
		t.Fatalf("String() = %q, want %q", s, "20000.00")
	}
}

func TestArithmetic(t *testing.T) {
	a := FromMajor(1000)
	b := FromMinor(2550) // 25.50

	if got := a.Sub(b); got.Minor() != 97450 {
		t.Fatalf("Sub = %d, want 97450", got.Minor())
	}
	if got := a.Add(b); got.Minor() != 102550 {
		t.Fatalf("Add = %d, want 102550", got.Minor())
	}
	if !a.GreaterThan(b) || b.GreaterThan(a) {
		t.Fatal("comparison mismatch")
	}
	if !b.IsPositive() || FromMinor(-1).IsPositive() || Zero.IsPositive() {
		t.Fatal("IsPositive mismatch")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Amount Amount `json:"amount"`
	}

	out, err := json.Marshal(payload{Amount: FromMinor(40050)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"amount":"400.50"}` {
		t.Fatalf("marshal = %s", out)
	}

	for _, in := range []string{`{"amount":"400.50"}`, `{"amount":400.50}`} {
		var p payload
		if err := json.Unmarshal([]byte(in), &p); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if p.Amount.Minor() != 40050 {
			t.Fatalf("unmarshal %s = %d minor, want 40050", in, p.Amount.Minor())
		}
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"amount":"400.505"}`), &p); err == nil {
		t.Fatal("expected precision error for 3 fractional digits")
	}
}
