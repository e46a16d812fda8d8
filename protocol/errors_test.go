package protocol

import "testing"

func TestParseLinkError(t *testing.T) {
	cases := []struct {
		code byte
		want Error
	}{
		{'1', ErrCharReception},
		{'2', ErrChecksum},
		{'4', ErrAddress},
		{'5', ErrTimeout},
		{'6', ErrReceiverNotReady},
		{'7', ErrFrameLength},
		{'8', ErrControlCodePresent},
		{'9', ErrUndefined},
	}
	for _, c := range cases {
		if got := ParseLinkError(c.code); got != c.want {
			t.Errorf("ParseLinkError(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestParseAppError(t *testing.T) {
	cases := []struct {
		code string
		want Error
	}{
		{"01", ErrUnknownCommand},
		{"0D", ErrCommBaseNotOpen},
		{"1F", ErrModuleNotManual},
		{"99", ErrUndefined},
	}
	for _, c := range cases {
		if got := ParseAppError([]byte(c.code)); got != c.want {
			t.Errorf("ParseAppError(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !ErrTimeout.IsTransient() {
		t.Error("ErrTimeout should be transient")
	}
	if !ErrReceiverNotReady.IsTransient() {
		t.Error("ErrReceiverNotReady should be transient")
	}
	if ErrChecksum.IsTransient() {
		t.Error("ErrChecksum should not be transient")
	}
}

func TestErrorStringKnownAndUnknown(t *testing.T) {
	if ErrTimeout.Error() == "Unknown Error" {
		t.Error("ErrTimeout should have a description")
	}
	unknown := Error{Kind: KindApp, Code: "ZZ"}
	if unknown.Error() != "Unknown Error" {
		t.Errorf("expected fallback description, got %q", unknown.Error())
	}
}
