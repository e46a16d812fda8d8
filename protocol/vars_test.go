package protocol

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseVarsDropsUnknown(t *testing.T) {
	vars := ParseVars([]byte("d0014;z9999;r0003E8"))
	if len(vars) != 2 {
		t.Fatalf("expected 2 known vars, got %d: %v", len(vars), vars)
	}
	if string(vars[VarRate]) != "0014" {
		t.Errorf("VarRate = %q, want %q", vars[VarRate], "0014")
	}
	if string(vars[VarVolume]) != "0003E8" {
		t.Errorf("VarVolume = %q, want %q", vars[VarVolume], "0003E8")
	}
}

func TestExtractRate(t *testing.T) {
	// 0x0014 = 20 tenths of mL/h = 2.0 mL/h
	rate, err := ExtractRate([]byte("d0014"))
	if err != nil {
		t.Fatalf("ExtractRate: %v", err)
	}
	if !almostEqual(rate, 2.0) {
		t.Errorf("rate = %v, want 2.0", rate)
	}
}

func TestExtractVolume(t *testing.T) {
	// 0x3E8 = 1000 thousandths of mL = 1.0 mL
	vol, err := ExtractVolume([]byte("r03E8"))
	if err != nil {
		t.Fatalf("ExtractVolume: %v", err)
	}
	if !almostEqual(vol, 1.0) {
		t.Errorf("volume = %v, want 1.0", vol)
	}
}

func TestExtractRateMissingField(t *testing.T) {
	if _, err := ExtractRate([]byte("r03E8")); err == nil {
		t.Fatal("expected error for missing rate field")
	}
}

func TestModulesBitmap(t *testing.T) {
	// 0x1F = all five modules present.
	bm, err := ModulesBitmap([]byte("b1F"))
	if err != nil {
		t.Fatalf("ModulesBitmap: %v", err)
	}
	if bm != 0x1F {
		t.Errorf("bitmap = %#x, want 0x1F", bm)
	}
}

func TestModulesBitmapMasksHighBits(t *testing.T) {
	// Any bits above the 5 module slots must be masked off.
	bm, err := ModulesBitmap([]byte("bFF"))
	if err != nil {
		t.Fatalf("ModulesBitmap: %v", err)
	}
	if bm != 0x1F {
		t.Errorf("bitmap = %#x, want 0x1F", bm)
	}
}
