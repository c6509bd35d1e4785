package errors

import (
	"math"
	"testing"
)

func TestCheckNumericalStability(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{"stable values", []float64{0.1, -2.5, 1e8}, false},
		{"contains NaN", []float64{0.1, math.NaN(), 1.0}, true},
		{"contains +Inf", []float64{math.Inf(1)}, true},
		{"contains -Inf", []float64{-1.0, math.Inf(-1)}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckNumericalStability("gradient_update", tt.values, 3)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckNumericalStability() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var numErr *NumericalInstabilityError
				if !As(err, &numErr) {
					t.Fatalf("expected NumericalInstabilityError, got %T", err)
				}
				if numErr.Operation != "gradient_update" {
					t.Errorf("Operation = %q, want gradient_update", numErr.Operation)
				}
				if numErr.Iteration != 3 {
					t.Errorf("Iteration = %d, want 3", numErr.Iteration)
				}
			}
		})
	}
}

func TestStabilizeLog(t *testing.T) {
	if got := StabilizeLog(math.E); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("StabilizeLog(e) = %v, want 1.0", got)
	}
	// log(0) must not return -Inf
	if got := StabilizeLog(0); math.IsInf(got, -1) {
		t.Error("StabilizeLog(0) returned -Inf")
	}
	if got := StabilizeLog(-1); math.IsInf(got, -1) || math.IsNaN(got) {
		t.Errorf("StabilizeLog(-1) = %v, want finite", got)
	}
}

func TestStabilizeExp(t *testing.T) {
	if got := StabilizeExp(0); got != 1.0 {
		t.Errorf("StabilizeExp(0) = %v, want 1.0", got)
	}
	if got := StabilizeExp(1e6); math.IsInf(got, 1) {
		t.Error("StabilizeExp(1e6) overflowed to +Inf")
	}
	if got := StabilizeExp(-1e6); got != 0 {
		t.Errorf("StabilizeExp(-1e6) = %v, want 0", got)
	}
}

func TestLogSumExp(t *testing.T) {
	// log(exp(0) + exp(0)) = log(2)
	got := LogSumExp([]float64{0, 0})
	if math.Abs(got-math.Log(2)) > 1e-12 {
		t.Errorf("LogSumExp([0,0]) = %v, want log(2)", got)
	}

	// Large inputs must not overflow
	got = LogSumExp([]float64{1000, 1000})
	want := 1000 + math.Log(2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogSumExp([1000,1000]) = %v, want %v", got, want)
	}

	if got := LogSumExp(nil); !math.IsInf(got, -1) {
		t.Errorf("LogSumExp(nil) = %v, want -Inf", got)
	}
}

func TestClipValue(t *testing.T) {
	if got := ClipValue(1.5, 0, 1); got != 1 {
		t.Errorf("ClipValue(1.5, 0, 1) = %v, want 1", got)
	}
	if got := ClipValue(-0.5, 0, 1); got != 0 {
		t.Errorf("ClipValue(-0.5, 0, 1) = %v, want 0", got)
	}
	if got := ClipValue(0.5, 0, 1); got != 0.5 {
		t.Errorf("ClipValue(0.5, 0, 1) = %v, want 0.5", got)
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
	if got := SafeDivide(6, 3); got != 2 {
		t.Errorf("SafeDivide(6, 3) = %v, want 2", got)
	}
}
