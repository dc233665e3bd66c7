package abr

import "testing"

func TestParsePresetHappyPath(t *testing.T) {
	ladder, err := ParsePreset("low|640x360|800, mid|1280x720|2500 ,high|1920x1080|5000")
	if err != nil {
		t.Fatalf("ParsePreset returned error: %v", err)
	}
	want := []Variant{
		{Name: "low", Resolution: "640x360", BitrateKbps: 800},
		{Name: "mid", Resolution: "1280x720", BitrateKbps: 2500},
		{Name: "high", Resolution: "1920x1080", BitrateKbps: 5000},
	}
	if len(ladder) != len(want) {
		t.Fatalf("got %d variants, want %d", len(ladder), len(want))
	}
	for i := range want {
		if ladder[i] != want[i] {
			t.Errorf("variant %d = %+v, want %+v", i, ladder[i], want[i])
		}
	}
}

func TestParsePresetEmptyStringYieldsEmptyLadder(t *testing.T) {
	ladder, err := ParsePreset("")
	if err != nil {
		t.Fatalf("ParsePreset(\"\") returned error: %v", err)
	}
	if len(ladder) != 0 {
		t.Fatalf("got %d variants, want 0", len(ladder))
	}
}

func TestParsePresetSkipsEmptyEntries(t *testing.T) {
	ladder, err := ParsePreset(",,low|640x360|800,,")
	if err != nil {
		t.Fatalf("ParsePreset returned error: %v", err)
	}
	if len(ladder) != 1 || ladder[0].Name != "low" {
		t.Fatalf("got %+v, want single low variant", ladder)
	}
}

func TestParsePresetRejectsEmptyToken(t *testing.T) {
	if _, err := ParsePreset("low||800"); err == nil {
		t.Fatal("expected error for empty resolution token")
	}
}

func TestParsePresetRejectsNonIntegerBitrate(t *testing.T) {
	if _, err := ParsePreset("low|640x360|fast"); err == nil {
		t.Fatal("expected error for non-integer bitrateKbps")
	}
}

func TestParsePresetRoundTripIsFixedPointModuloWhitespace(t *testing.T) {
	const text = "low|640x360|800,mid|1280x720|2500"
	ladder, err := ParsePreset(text)
	if err != nil {
		t.Fatalf("ParsePreset returned error: %v", err)
	}
	if got := String(ladder); got != text {
		t.Errorf("String(ParsePreset(text)) = %q, want %q", got, text)
	}
}
