package protocol

// Command names understood by the board firmware. The wire ID of a command is
// its index in this table plus one; ID 0 is reserved for board log messages.
var commandNames = [...]string{
	"ping",
	"nSlices",
	"buildRes",
	"buildMinMove",
	"tiltRes",
	"tiltAngle",
	"shttrOpnPs",
	"shttrClsPs",
	"shutterOpen",
	"shutterClose",
	"shutterEnable",
	"shutterDisable",
	"buildHome",
	"buildTop",
	"buildMove",
	"tilt",
	"tiltSpeed",
	"printingFlag",
	"triggerCam",
}

// ResponseLog is the command ID of a free-text message sent by the board.
const ResponseLog = 0

var commandIDs = func() map[string]uint16 {
	ids := make(map[string]uint16, len(commandNames))
	for i, name := range commandNames {
		ids[name] = uint16(i + 1)
	}
	return ids
}()

// CommandID looks up the wire ID for a command name.
func CommandID(name string) (uint16, bool) {
	id, ok := commandIDs[name]
	return id, ok
}

// CommandName returns the name registered for id, or "" if unknown.
func CommandName(id uint16) string {
	if id == 0 || int(id) > len(commandNames) {
		return ""
	}
	return commandNames[id-1]
}

// CommandNames lists every known command in wire order.
func CommandNames() []string {
	return append([]string(nil), commandNames[:]...)
}

// EncodeCommand builds the payload for a command carrying one integer argument.
func EncodeCommand(id uint16, arg int32) []byte {
	out := NewScratchOutput()
	EncodeVLQUint(out, uint32(id))
	EncodeVLQInt(out, arg)
	return append([]byte(nil), out.Result()...)
}
