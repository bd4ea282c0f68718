package health

import (
	"context"
	"testing"
)

func TestChecker_Liveness(t *testing.T) {
	t.Parallel()
	checker := NewChecker("", t.TempDir())

	response := checker.Liveness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()
	checker := NewChecker("/bin/bash", t.TempDir())

	response := checker.Readiness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
	for _, name := range []string{"shell", "workspace"} {
		check, ok := response.Checks[name]
		if !ok {
			t.Fatalf("Expected %s check to be present", name)
		}
		if check.Status != StatusHealthy {
			t.Errorf("Expected %s check to be healthy, got %s", name, check.Status)
		}
	}
}

func TestChecker_Readiness_MissingShell(t *testing.T) {
	t.Parallel()
	checker := NewChecker("/nonexistent/shell", t.TempDir())

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}
	if response.Checks["shell"].Status != StatusUnhealthy {
		t.Errorf("Expected shell check to be unhealthy, got %s", response.Checks["shell"].Status)
	}
}

func TestChecker_Readiness_NoWorkspace(t *testing.T) {
	t.Parallel()
	checker := NewChecker("/bin/bash", "")

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}
	if response.Checks["workspace"].Status != StatusUnhealthy {
		t.Errorf("Expected workspace check to be unhealthy, got %s", response.Checks["workspace"].Status)
	}
}

func TestChecker_Readiness_ShuttingDown(t *testing.T) {
	t.Parallel()
	checker := NewChecker("/bin/bash", t.TempDir())
	checker.SetShuttingDown()

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}
	if _, ok := response.Checks["shutdown"]; !ok {
		t.Fatal("Expected shutdown check to be present")
	}
}

func TestResponse_IsHealthy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"healthy", StatusHealthy, true},
		{"unhealthy", StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			response := &Response{Status: tt.status}
			if response.IsHealthy() != tt.expected {
				t.Errorf("IsHealthy() = %v, want %v", response.IsHealthy(), tt.expected)
			}
		})
	}
}
