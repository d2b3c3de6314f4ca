package services

import "testing"

func TestHTTPStatusForOverall(t *testing.T) {
	s := NewHealthService("EduAdmin API", "test")

	tests := []struct {
		status string
		want   int
	}{
		{overallStatusOK, 200},
		{overallStatusDegraded, 200},
		{overallStatusCritical, 503},
	}
	for _, tc := range tests {
		if got := s.HTTPStatusForOverall(tc.status); got != tc.want {
			t.Errorf("HTTPStatusForOverall(%q) = %d, want %d", tc.status, got, tc.want)
		}
	}
}

func TestNewHealthServiceDefaults(t *testing.T) {
	s := NewHealthService("  ", "")
	if s.serviceName != "EduAdmin API" {
		t.Errorf("serviceName = %q, want default", s.serviceName)
	}
	if s.version != "dev" {
		t.Errorf("version = %q, want dev", s.version)
	}
}
