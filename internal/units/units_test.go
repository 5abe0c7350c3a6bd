package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedKts float64
		units    string
		expected float64
	}{
		{"400 kts to kts", 400.0, KTS, 400.0},
		{"400 kts to mps", 400.0, MPS, 205.7776},
		{"400 kts to kmh", 400.0, KMH, 740.8},
		{"400 kts to mph", 400.0, MPH, 460.312},
		{"unknown units default to kts", 400.0, "unknown", 400.0},
		{"zero speed", 0.0, MPH, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedKts, tt.units)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedKts, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid kts", KTS, true},
		{"valid mps", MPS, true},
		{"valid kmh", KMH, true},
		{"valid mph", MPH, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "KTS", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "kts, mps, kmh, mph"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}
