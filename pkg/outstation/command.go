// Package outstation implements the slave-side request dispatcher,
// response builder, Select-Before-Operate handler and unsolicited
// response engine. Its shape follows the teacher's pkg/od: a typed
// database of addressable points (here, indexed by group+index rather
// than CANopen's index+subindex) plus an Extension-style callback
// interface for anything that needs side effects beyond a plain read or
// write — the command handler plays the role od.Extension plays for
// SDO-writable entries.
package outstation

// CommandStatus mirrors the DNP3 control-status byte returned in a
// CROB/analog-output-command echo object.
type CommandStatus uint8

const (
	StatusSuccess           CommandStatus = 0
	StatusTimeout           CommandStatus = 1
	StatusNoSelect          CommandStatus = 2
	StatusFormatError       CommandStatus = 3
	StatusNotSupported      CommandStatus = 4
	StatusAlreadyActive     CommandStatus = 5
	StatusHardwareError     CommandStatus = 6
	StatusLocal             CommandStatus = 7
	StatusTooManyOps        CommandStatus = 8
	StatusNotAuthorized     CommandStatus = 9
	StatusAutomationInhibit CommandStatus = 10
	StatusProcessingLimited CommandStatus = 11
	StatusOutOfRange        CommandStatus = 12
)

// CommandHandler is implemented by the application embedding this core
// to actuate binary and analog output commands. group identifies which
// object group requested the action (12 for CROB, 41 for analog output
// commands); index is the point index; payload is the command object's
// raw value bytes as received on the wire.
type CommandHandler interface {
	Select(group uint8, index uint16, payload []byte) CommandStatus
	Operate(group uint8, index uint16, payload []byte) CommandStatus
	DirectOperate(group uint8, index uint16, payload []byte) CommandStatus
}
