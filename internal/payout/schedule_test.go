package payout

import (
	"errors"
	"testing"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid schedule",
			raw: map[string]interface{}{
				"1": map[string]interface{}{"min": float64(5), "max": float64(20), "avg": float64(10)},
				"2": map[string]interface{}{"min": float64(1), "max": float64(5), "avg": float64(2)},
			},
		},
		{
			name: "min above max rejected",
			raw: map[string]interface{}{
				"1": map[string]interface{}{"min": float64(50), "max": float64(20), "avg": float64(30)},
			},
			wantErr: true,
		},
		{
			name: "avg outside bounds rejected",
			raw: map[string]interface{}{
				"1": map[string]interface{}{"min": float64(5), "max": float64(20), "avg": float64(100)},
			},
			wantErr: true,
		},
		{
			name: "non integer key rejected",
			raw: map[string]interface{}{
				"first": map[string]interface{}{"min": float64(5), "max": float64(20), "avg": float64(10)},
			},
			wantErr: true,
		},
		{
			name: "zero key rejected",
			raw: map[string]interface{}{
				"0": map[string]interface{}{"min": float64(5), "max": float64(20), "avg": float64(10)},
			},
			wantErr: true,
		},
		{
			name: "fractional amount rejected",
			raw: map[string]interface{}{
				"1": map[string]interface{}{"min": float64(5), "max": float64(20), "avg": 10.5},
			},
			wantErr: true,
		},
		{
			name: "missing field rejected",
			raw: map[string]interface{}{
				"1": map[string]interface{}{"min": float64(5), "max": float64(20)},
			},
			wantErr: true,
		},
		{
			name:    "empty schedule rejected",
			raw:     map[string]interface{}{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedule(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSchedule) {
					t.Fatalf("expected ErrInvalidSchedule, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	fallback := int64(7)

	tests := []struct {
		name           string
		schedule       Schedule
		priorSuccesses int
		fallback       *int64
		want           int64
	}{
		{
			name:           "avg within bounds is used",
			schedule:       Schedule{1: {Min: 5, Max: 20, Avg: 10}},
			priorSuccesses: 0,
			want:           10,
		},
		{
			name:           "avg above max clamps to max",
			schedule:       Schedule{1: {Min: 10, Max: 50, Avg: 100}},
			priorSuccesses: 0,
			want:           50,
		},
		{
			name:           "avg below min clamps to min",
			schedule:       Schedule{1: {Min: 10, Max: 50, Avg: 5}},
			priorSuccesses: 0,
			want:           10,
		},
		{
			name:           "position selects later tier",
			schedule:       Schedule{1: {Min: 5, Max: 20, Avg: 10}, 3: {Min: 1, Max: 2, Avg: 1}},
			priorSuccesses: 2,
			want:           1,
		},
		{
			name:           "missing tier uses fallback",
			schedule:       Schedule{1: {Min: 5, Max: 20, Avg: 10}},
			priorSuccesses: 5,
			fallback:       &fallback,
			want:           7,
		},
		{
			name:           "missing tier without fallback uses default",
			schedule:       Schedule{1: {Min: 5, Max: 20, Avg: 10}},
			priorSuccesses: 5,
			want:           DefaultAmount,
		},
		{
			name:           "nil schedule uses fallback",
			schedule:       nil,
			priorSuccesses: 0,
			fallback:       &fallback,
			want:           7,
		},
		{
			name:           "fixed single tier pays exactly",
			schedule:       Schedule{1: {Min: 20, Max: 20, Avg: 20}},
			priorSuccesses: 0,
			want:           20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.schedule, tt.priorSuccesses, tt.fallback)
			if got != tt.want {
				t.Errorf("Resolve() = %d, want %d", got, tt.want)
			}
		})
	}
}
