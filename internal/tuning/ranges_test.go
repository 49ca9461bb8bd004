package tuning

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestExpand(t *testing.T) {
	testCases := []struct {
		name string
		spec string
		def  AxisDefault
		want []float64
	}{
		{"empty uses default value", "", DefaultAlpha, []float64{0.75}},
		{"whitespace uses default value", "   ", DefaultPlacement, []float64{1.0}},
		{"literal", "0.3", DefaultAlpha, []float64{0.3}},
		{"negative literal", "-0.15", DefaultAlpha, []float64{-0.15}},
		{"placement range", "1.0:0.5:2.0", DefaultPlacement, []float64{1.0, 1.5, 2.0}},
		{"alpha range admits boundary drift", "0.65:0.05:0.85", DefaultAlpha, []float64{0.65, 0.7, 0.75, 0.8, 0.85}},
		{"adjacency range", "0.2:0.2:0.6", DefaultAdjacency, []float64{0.2, 0.4, 0.6}},
		{"end not on grid", "0:0.3:1", DefaultMonteCarlo, []float64{0, 0.3, 0.6, 0.9}},
		{"start equals end", "0.5:0.1:0.5", DefaultMonteCarlo, []float64{0.5}},
		{"descending", "1:-0.25:0.5", DefaultPlacement, []float64{1, 0.75, 0.5}},
		{"spaces around fields", " 0 : 0.5 : 0.5 ", DefaultMonteCarlo, []float64{0, 0.5}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expand(tc.spec, tc.def)
			if err != nil {
				t.Fatalf("Expand(%q) error: %v", tc.spec, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Expand(%q) = %v, want %v", tc.spec, got, tc.want)
			}
		})
	}
}

func TestExpandInvalid(t *testing.T) {
	testCases := []struct {
		name string
		spec string
	}{
		{"unparsable literal", "abc"},
		{"two fields", "0.1:0.2"},
		{"four fields", "0:1:2:3"},
		{"bad start", "x:0.1:1"},
		{"bad step", "0:y:1"},
		{"bad end", "0:0.1:z"},
		{"zero step", "0:0:1"},
		{"step moves away from end", "1:0.1:0"},
		{"negative step moves away from end", "0:-0.1:1"},
		{"nan field", "NaN:0.1:1"},
		{"infinite literal", "Inf"},
		{"too many values", "0:0.00001:1"},
		{"step below resolution on empty span", "0:1e-300:0"},
		{"tiny step on empty span", "0:1e-13:0"},
		{"step rounds to zero", "0:1e-10:5e-7"},
		{"step finer than resolution", "0:1e-7:5e-7"},
		{"start finer than resolution", "0.1234567:0.1:1"},
		{"end finer than resolution", "0:0.1:0.95000001"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expand(tc.spec, DefaultAlpha)
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("Expand(%q) = %v, %v; want ErrInvalidRange", tc.spec, got, err)
			}
		})
	}
}

func TestExpandLengthMatchesStepCount(t *testing.T) {
	testCases := []struct {
		start, step, end float64
	}{
		{0, 0.1, 1},
		{0.65, 0.05, 0.85},
		{-1, 0.25, 1},
		{2, -0.5, 0},
		{0, 0.07, 0.5},
	}

	for _, tc := range testCases {
		spec := formatFloat(tc.start) + ":" + formatFloat(tc.step) + ":" + formatFloat(tc.end)
		got, err := Expand(spec, DefaultAlpha)
		if err != nil {
			t.Fatalf("Expand(%q): %v", spec, err)
		}
		want := int(math.Floor((tc.end-tc.start)/tc.step+1e-9)) + 1
		if len(got) != want {
			t.Errorf("Expand(%q) returned %d values, want %d", spec, len(got), want)
		}
		for i := 1; i < len(got); i++ {
			if (tc.step > 0 && got[i] <= got[i-1]) || (tc.step < 0 && got[i] >= got[i-1]) {
				t.Errorf("Expand(%q) not strictly monotonic at %d: %v", spec, i, got)
			}
		}
	}
}

func TestExpandFinestStep(t *testing.T) {
	got, err := Expand("0.1:0.000001:0.10001", DefaultAlpha)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(got) != 11 {
		t.Fatalf("Expand returned %d values, want 11: %v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("not strictly increasing at %d: %v", i, got)
		}
	}
	if last := got[len(got)-1]; last > 0.10001+1e-9 {
		t.Errorf("last value %v passes end", last)
	}
}

func TestAxisDefaultRange(t *testing.T) {
	if got := DefaultAlpha.Range(); got != "0.75:0.05:0.85" {
		t.Errorf("DefaultAlpha.Range() = %q", got)
	}
	vals, err := Expand(DefaultMonteCarlo.Range(), DefaultMonteCarlo)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vals, []float64{0, 0.5}) {
		t.Errorf("default monte carlo sweep = %v", vals)
	}
}
