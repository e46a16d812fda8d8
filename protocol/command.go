package protocol

// Command is a two-letter Fresenius opcode.
type Command string

const (
	CmdConnect      Command = "DC"
	CmdDisconnect   Command = "FC"
	CmdMode         Command = "MO"
	CmdReset        Command = "RZ"
	CmdOff          Command = "OF"
	CmdSilence      Command = "SI"
	CmdSetDrug      Command = "EP"
	CmdReadDrug     Command = "LP"
	CmdShowDrug     Command = "AP"
	CmdSetID        Command = "EN"
	CmdReadID       Command = "LN"
	CmdEnableSpont  Command = "DE"
	CmdDisableSpont Command = "AE"
	CmdReadVar      Command = "LE"
	CmdEnableAdj    Command = "DM"
	CmdDisableAdj   Command = "AM"
	CmdReadAdj      Command = "LM"
	CmdReadFixed    Command = "LF"
	CmdSetRate      Command = "PR"
	CmdSetPause     Command = "PO"
	CmdSetBolus     Command = "PB"
	CmdSetEmpty     Command = "PF"
	CmdSetLimVolume Command = "PV"
	CmdResetVolume  Command = "RV"
	CmdPressureLim  Command = "PP"
	CmdDynPressure  Command = "PS"
)

// VarId is a single-byte identifier used with CmdReadVar ("LE").
type VarId byte

const (
	VarAlarm   VarId = 'a'
	VarError   VarId = 'e'
	VarMode    VarId = 'm'
	VarRate    VarId = 'd'
	VarVolume  VarId = 'r'
	VarBolRate VarId = 'k'
	VarBolVol  VarId = 's'
	VarNumMods VarId = 'i'
	VarModules VarId = 'b'
)

// FixedVarId is a single-byte identifier used with CmdReadFixed ("LF").
type FixedVarId byte

const (
	FixedVarDeviceType FixedVarId = 'b'
)

// Build assembles a raw command payload from an opcode and either flags
// (appended as-is after a single ';') or args (each preceded by ';'),
// mirroring infupy's execCommand: flags take precedence over args when
// both are supplied.
func Build(cmd Command, flags []byte, args [][]byte) []byte {
	out := []byte(cmd)
	switch {
	case len(flags) > 0:
		out = append(out, ';')
		out = append(out, flags...)
	case len(args) > 0:
		out = append(out, ';')
		for i, a := range args {
			if i > 0 {
				out = append(out, ';')
			}
			out = append(out, a...)
		}
	}
	return out
}
