package protocol

import "testing"

func TestBuildFlagsTakePrecedenceOverArgs(t *testing.T) {
	got := Build(CmdReadVar, []byte{'d'}, [][]byte{[]byte("ignored")})
	want := "LE;d"
	if string(got) != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuildArgsJoinedWithSemicolons(t *testing.T) {
	got := Build(CmdSetRate, nil, [][]byte{[]byte("0014"), []byte("1")})
	want := "PR;0014;1"
	if string(got) != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuildNoFlagsOrArgs(t *testing.T) {
	got := Build(CmdConnect, nil, nil)
	want := "DC"
	if string(got) != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}
