package protocol

import "fmt"

// ErrorKind distinguishes the two error tiers: a single-byte link-layer
// code (follows NAK) or a two-character application-layer code (follows
// an 'I' reply status).
type ErrorKind int

const (
	KindUndefined ErrorKind = iota
	KindLink
	KindApp
)

// Error is the closed taxonomy of link- and application-layer error codes:
// a single tagged value with a canonical wire code and a human-readable
// description.
type Error struct {
	Kind ErrorKind
	Code string // "31".."38" for link errors, "01".."25" for app errors
}

func (e Error) Error() string {
	if d, ok := errorDescriptions[e]; ok {
		return d
	}
	return "Unknown Error"
}

// IsTransient reports whether e should trigger a single automatic retry.
func (e Error) IsTransient() bool {
	return e == ErrTimeout || e == ErrReceiverNotReady
}

var (
	ErrUndefined = Error{Kind: KindUndefined}

	// Link-layer errors, follow NAK.
	ErrCharReception     = Error{Kind: KindLink, Code: "31"}
	ErrChecksum          = Error{Kind: KindLink, Code: "32"}
	ErrAddress           = Error{Kind: KindLink, Code: "34"}
	ErrTimeout           = Error{Kind: KindLink, Code: "35"}
	ErrReceiverNotReady  = Error{Kind: KindLink, Code: "36"}
	ErrFrameLength       = Error{Kind: KindLink, Code: "37"}
	ErrControlCodePresent = Error{Kind: KindLink, Code: "38"}

	// Application-layer errors, follow status 'I'.
	ErrUnknownCommand      = Error{Kind: KindApp, Code: "01"}
	ErrCommandModeDisabled = Error{Kind: KindApp, Code: "02"}
	ErrCommandStatus       = Error{Kind: KindApp, Code: "03"}
	ErrSyntax              = Error{Kind: KindApp, Code: "04"}
	ErrModeAuth            = Error{Kind: KindApp, Code: "05"}
	ErrModeAlreadyActive   = Error{Kind: KindApp, Code: "06"}
	ErrNewModeDisabled     = Error{Kind: KindApp, Code: "07"}
	ErrParamOutOfLimit     = Error{Kind: KindApp, Code: "08"}
	ErrNewModeStatus       = Error{Kind: KindApp, Code: "09"}
	ErrIdentNotUsed        = Error{Kind: KindApp, Code: "0A"}
	ErrIdentIncorrect      = Error{Kind: KindApp, Code: "0B"}
	ErrMessageTooLong      = Error{Kind: KindApp, Code: "0C"}
	ErrCommBaseNotOpen     = Error{Kind: KindApp, Code: "0D"}
	ErrCommModuleImpossible = Error{Kind: KindApp, Code: "0E"}
	ErrAlarmPresent        = Error{Kind: KindApp, Code: "12"}
	ErrNoRateYet           = Error{Kind: KindApp, Code: "14"}
	ErrInsufficientVolume  = Error{Kind: KindApp, Code: "15"}
	ErrEmptyModeImpossible = Error{Kind: KindApp, Code: "16"}
	ErrEventNumberIncorrect = Error{Kind: KindApp, Code: "1A"}
	ErrCommModuleNotOpen   = Error{Kind: KindApp, Code: "1E"}
	// ErrModuleNotManual ("1F") is duplicated across infupy's error tables
	// in at least one observed variant; this module always resolves it to
	// the meaning shared with the Alaris taxonomy.
	ErrModuleNotManual  = Error{Kind: KindApp, Code: "1F"}
	ErrPortNotAuthorized = Error{Kind: KindApp, Code: "20"}
	ErrNewModeUnauthorized = Error{Kind: KindApp, Code: "22"}
	ErrConnectionModeIncorrect = Error{Kind: KindApp, Code: "24"}
	ErrDrugNumberIncorrect = Error{Kind: KindApp, Code: "25"}
)

var errorDescriptions = map[Error]string{
	ErrUndefined: "Unknown Error",

	ErrCharReception:      "Character Reception Problem",
	ErrChecksum:           "Incorrect Check-sum",
	ErrAddress:            "Incorrect Address",
	ErrTimeout:            "End of [ACK] Character time-out",
	ErrReceiverNotReady:   "Receiver not Ready",
	ErrFrameLength:        "Incorrect Frame Length",
	ErrControlCodePresent: "Presence of Control Code",

	ErrUnknownCommand:          "Unknown Command",
	ErrCommandModeDisabled:     "Command disabled in the current Mode",
	ErrCommandStatus:           "Command disabled in this status",
	ErrSyntax:                  "Syntax Error",
	ErrModeAuth:                "Operating Mode not Authorized",
	ErrModeAlreadyActive:       "Operating Mode already active",
	ErrNewModeDisabled:         "New operating mode disabled in this mode",
	ErrParamOutOfLimit:         "Parameter out off limit",
	ErrNewModeStatus:           "New operating mode disabled in this status",
	ErrIdentNotUsed:            "Identifier not used",
	ErrIdentIncorrect:          "Identifier incorrect",
	ErrMessageTooLong:          "Message too long",
	ErrCommBaseNotOpen:         "Communication session with the base not open",
	ErrCommModuleImpossible:    "Communication with module impossible",
	ErrAlarmPresent:            "Presence of an Alarm",
	ErrNoRateYet:               "Attempt to launch infusion before flow rate selection",
	ErrInsufficientVolume:      "Insufficient Volume to launch a bolus",
	ErrEmptyModeImpossible:     "Impossible to launch the empty Syringe mode",
	ErrEventNumberIncorrect:    "Recorded event number incorrect",
	ErrCommModuleNotOpen:       "The Communication with the module is not open",
	ErrModuleNotManual:         "One of the modules is not in the manual mode",
	ErrPortNotAuthorized:       "Command not authorized with this Port",
	ErrNewModeUnauthorized:     "New mode unauthorized",
	ErrConnectionModeIncorrect: "Connection Mode incorrect",
	ErrDrugNumberIncorrect:     "Drug number incorrect",
}

var linkErrorsByCode = buildLinkTable()
var appErrorsByCode = buildAppTable()

func buildLinkTable() map[string]Error {
	m := map[string]Error{}
	for _, e := range []Error{
		ErrCharReception, ErrChecksum, ErrAddress, ErrTimeout,
		ErrReceiverNotReady, ErrFrameLength, ErrControlCodePresent,
	} {
		m[e.Code] = e
	}
	return m
}

func buildAppTable() map[string]Error {
	m := map[string]Error{}
	for _, e := range []Error{
		ErrUnknownCommand, ErrCommandModeDisabled, ErrCommandStatus, ErrSyntax,
		ErrModeAuth, ErrModeAlreadyActive, ErrNewModeDisabled, ErrParamOutOfLimit,
		ErrNewModeStatus, ErrIdentNotUsed, ErrIdentIncorrect, ErrMessageTooLong,
		ErrCommBaseNotOpen, ErrCommModuleImpossible, ErrAlarmPresent, ErrNoRateYet,
		ErrInsufficientVolume, ErrEmptyModeImpossible, ErrEventNumberIncorrect,
		ErrCommModuleNotOpen, ErrModuleNotManual, ErrPortNotAuthorized,
		ErrNewModeUnauthorized, ErrConnectionModeIncorrect, ErrDrugNumberIncorrect,
	} {
		m[e.Code] = e
	}
	return m
}

// ParseLinkError maps the single byte that follows a NAK to its Error,
// defaulting to ErrUndefined for any code the device set never defines.
func ParseLinkError(b byte) Error {
	code := fmt.Sprintf("%02X", b)
	if e, ok := linkErrorsByCode[code]; ok {
		return e
	}
	return ErrUndefined
}

// ParseAppError maps a two-character application-layer code (the payload
// of an 'I' reply) to its Error.
func ParseAppError(code []byte) Error {
	if e, ok := appErrorsByCode[string(code)]; ok {
		return e
	}
	return ErrUndefined
}
