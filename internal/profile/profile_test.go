package profile

import (
	"math"
	"testing"
)

func TestResolveMessageType(t *testing.T) {
	tests := []struct {
		selector string
		want     uint16
		wantErr  bool
	}{
		{selector: "record", want: 20},
		{selector: "SESSION", want: 18},
		{selector: " lap ", want: 19},
		{selector: "global_33", want: 33},
		{selector: "18", want: 18},
		{selector: "", wantErr: true},
		{selector: "no_such_message", wantErr: true},
		{selector: "global_x", wantErr: true},
		{selector: "70000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := ResolveMessageType(tt.selector)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveMessageType(%q) = %d, want error", tt.selector, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveMessageType(%q): %v", tt.selector, err)
			}
			if got != tt.want {
				t.Fatalf("ResolveMessageType(%q) = %d, want %d", tt.selector, got, tt.want)
			}
		})
	}
}

func TestMessageNameFallback(t *testing.T) {
	if got := MessageName(MsgRecord); got != "record" {
		t.Fatalf("MessageName(20) = %q", got)
	}
	if got := MessageName(60000); got != "global_60000" {
		t.Fatalf("MessageName(60000) = %q", got)
	}
}

func TestColumnMapping(t *testing.T) {
	m := ColumnMapping(MsgRecord)
	if m["field_253"] != "timestamp" {
		t.Fatalf("field_253 -> %q, want timestamp", m["field_253"])
	}
	if m["field_3"] != "heart_rate" {
		t.Fatalf("field_3 -> %q, want heart_rate", m["field_3"])
	}
	if got := ColumnMapping(60000); got != nil {
		t.Fatalf("mapping for unknown message = %v, want nil", got)
	}
}

func TestScale(t *testing.T) {
	so, ok := Scale(MsgRecord, 6)
	if !ok || so.Scale != 1000 || so.Offset != 0 {
		t.Fatalf("record speed scale = %+v, ok=%v", so, ok)
	}
	so, ok = Scale(MsgRecord, 2)
	if !ok || so.Scale != 5 || so.Offset != 500 {
		t.Fatalf("record altitude scale = %+v, ok=%v", so, ok)
	}
	if _, ok := Scale(MsgRecord, 3); ok {
		t.Fatalf("heart rate should have no scale")
	}
	if _, ok := Scale(60000, 1); ok {
		t.Fatalf("unknown message should have no scale")
	}
}

func TestSemicirclesToDegrees(t *testing.T) {
	if got := SemicirclesToDegrees(0); got != 0 {
		t.Fatalf("0 semicircles = %v", got)
	}
	got := SemicirclesToDegrees(float64(int64(1) << 30))
	if math.Abs(got-90.0) > 1e-9 {
		t.Fatalf("quarter turn = %v, want 90", got)
	}
}
