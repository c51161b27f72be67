// Package wire implements the on-the-wire framing and payload encoding for
// the kvstore protocol: a Msg envelope carrying a 16-byte message id, an
// opaque payload and a checksum, and the KVRequest/KVResponse payloads
// carried inside it. Field numbers below are part of the wire contract and
// must not be renumbered.
package wire

import "fmt"

// Command identifies the operation requested by a KVRequest. The opcode
// space is closed; values outside this set decode to UnrecognizedCommand.
type Command uint32

const (
	CommandPut                Command = 0x01
	CommandGet                Command = 0x02
	CommandRemove             Command = 0x03
	CommandShutdown           Command = 0x04
	CommandWipeout            Command = 0x05
	CommandIsAlive            Command = 0x06
	CommandGetPID             Command = 0x07
	CommandGetMembershipCount Command = 0x08
	CommandGetMembershipList  Command = 0x22
)

func (c Command) String() string {
	switch c {
	case CommandPut:
		return "Put"
	case CommandGet:
		return "Get"
	case CommandRemove:
		return "Remove"
	case CommandShutdown:
		return "Shutdown"
	case CommandWipeout:
		return "Wipeout"
	case CommandIsAlive:
		return "IsAlive"
	case CommandGetPID:
		return "GetPID"
	case CommandGetMembershipCount:
		return "GetMembershipCount"
	case CommandGetMembershipList:
		return "GetMembershipList"
	default:
		return fmt.Sprintf("Command(0x%02x)", uint32(c))
	}
}

// knownCommands is the closed opcode set. Opcodes 0x09-0x21 and 0x23-0xff are
// reserved for a future multi-node membership protocol and are intentionally
// absent here; they fall through to UnrecognizedCommand like any other
// unknown opcode.
var knownCommands = map[Command]struct{}{
	CommandPut:                {},
	CommandGet:                {},
	CommandRemove:             {},
	CommandShutdown:           {},
	CommandWipeout:            {},
	CommandIsAlive:            {},
	CommandGetPID:             {},
	CommandGetMembershipCount: {},
	CommandGetMembershipList:  {},
}

// Known reports whether c is in the closed opcode set.
func (c Command) Known() bool {
	_, ok := knownCommands[c]
	return ok
}

// ErrCode is the closed response error-code enumeration carried in every
// KVResponse.
type ErrCode uint32

const (
	Success                 ErrCode = 0x00
	NonExistentKey          ErrCode = 0x01
	OutOfSpace              ErrCode = 0x02
	TemporarySystemOverload ErrCode = 0x03
	InternalKVStoreFailure  ErrCode = 0x04
	UnrecognizedCommand     ErrCode = 0x05
	InvalidKey              ErrCode = 0x06
	InvalidValue            ErrCode = 0x07
	ProtobufError           ErrCode = 0x21
	InvalidChecksum         ErrCode = 0x22
)

func (e ErrCode) String() string {
	switch e {
	case Success:
		return "Success"
	case NonExistentKey:
		return "NonExistentKey"
	case OutOfSpace:
		return "OutOfSpace"
	case TemporarySystemOverload:
		return "TemporarySystemOverload"
	case InternalKVStoreFailure:
		return "InternalKVStoreFailure"
	case UnrecognizedCommand:
		return "UnrecognizedCommand"
	case InvalidKey:
		return "InvalidKey"
	case InvalidValue:
		return "InvalidValue"
	case ProtobufError:
		return "ProtobufError"
	case InvalidChecksum:
		return "InvalidChecksum"
	default:
		return fmt.Sprintf("ErrCode(0x%02x)", uint32(e))
	}
}

// Limits, fixed by the wire contract.
const (
	MaxKeySize   = 32
	MaxValueSize = 10000
	MaxFrameSize = 16384
)
