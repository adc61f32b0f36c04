package models

import "testing"

func TestReport_Terminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{ReportPending, false},
		{ReportCompleted, true},
		{ReportFailed, true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			r := Report{Status: tt.status}
			if got := r.Terminal(); got != tt.want {
				t.Errorf("Terminal() with status %q = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
