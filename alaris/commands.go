package alaris

// Message type names carried in the first caret-delimited field of every
// frame body.
const (
	MsgRemoteCtrl = "REMOTE_CTRL"
	MsgRemoteCfg  = "REMOTE_CFG"
	MsgInfStatus  = "INF_STATUS"
	MsgInfRate    = "INF_RATE"
	MsgInfVol     = "INF_VOL"
)

// replyTypes are message types sent in direct response to a command this
// driver issued; anything else arriving unsolicited is a broadcast status
// frame routed to the event channel instead.
var replyTypes = map[string]bool{
	MsgRemoteCtrl: true,
	MsgRemoteCfg:  true,
	MsgInfRate:    true,
	MsgInfVol:     true,
}

// BuildKeepAlive assembles a keep-alive frame of the given message type
// (MsgRemoteCtrl or MsgRemoteCfg) that claims (on=true) or releases
// (on=false) host remote control, authenticated with securityCode. The
// keep-alive looper sends both message types every tick, and a final
// on=false frame of each on teardown.
func BuildKeepAlive(msgType string, on bool, securityCode string) []byte {
	state := "DISABLED"
	if on {
		state = "ENABLED"
	}
	return Join([][]byte{[]byte(msgType), []byte(state), []byte(securityCode)})
}

// BuildRemoteCtrl assembles the REMOTE_CTRL keep-alive frame.
func BuildRemoteCtrl(on bool, securityCode string) []byte {
	return BuildKeepAlive(MsgRemoteCtrl, on, securityCode)
}

// BuildRemoteCfg assembles the REMOTE_CFG keep-alive frame.
func BuildRemoteCfg(on bool, securityCode string) []byte {
	return BuildKeepAlive(MsgRemoteCfg, on, securityCode)
}

// MessageType returns the first field of a decoded body, the frame's
// message type.
func MessageType(body []byte) string {
	fields := Fields(body)
	if len(fields) == 0 {
		return ""
	}
	return string(fields[0])
}
