package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// KVRequest field numbers, fixed by the wire schema.
const (
	reqFieldCommand protowire.Number = 1
	reqFieldKey     protowire.Number = 2
	reqFieldValue   protowire.Number = 3
	reqFieldVersion protowire.Number = 4
)

// KVResponse field numbers, fixed by the wire schema.
const (
	respFieldErrCode          protowire.Number = 1
	respFieldValue            protowire.Number = 2
	respFieldPID              protowire.Number = 3
	respFieldVersion          protowire.Number = 4
	respFieldOverloadWaitTime protowire.Number = 5
	respFieldMembershipCount  protowire.Number = 6
)

// Request is the decoded inner KVRequest payload. Key, Value and Version are
// nil when absent from the wire form.
type Request struct {
	Command Command
	Key     []byte
	Value   []byte
	Version *int32
}

// Response is the decoded inner KVResponse payload. Value, PID, Version,
// OverloadWaitTime and MembershipCount are nil when absent.
type Response struct {
	ErrCode          ErrCode
	Value            []byte
	PID              *int32
	Version          *int32
	OverloadWaitTime *int32
	MembershipCount  *int32
}

// EncodeRequest serialises req into a KVRequest payload.
func EncodeRequest(req Request) []byte {
	b := protowire.AppendTag(nil, reqFieldCommand, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.Command))
	if req.Key != nil {
		b = protowire.AppendTag(b, reqFieldKey, protowire.BytesType)
		b = protowire.AppendBytes(b, req.Key)
	}
	if req.Value != nil {
		b = protowire.AppendTag(b, reqFieldValue, protowire.BytesType)
		b = protowire.AppendBytes(b, req.Value)
	}
	if req.Version != nil {
		b = protowire.AppendTag(b, reqFieldVersion, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*req.Version)))
	}
	return b
}

// DecodeRequest parses a KVRequest payload. It returns ProtobufError if the
// wire form is malformed, or UnrecognizedCommand if the command opcode is
// outside the closed set.
func DecodeRequest(payload []byte) (Request, ErrCode) {
	var req Request
	var haveCommand bool

	b := payload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Request{}, ProtobufError
		}
		b = b[n:]

		switch num {
		case reqFieldCommand:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Request{}, ProtobufError
			}
			req.Command = Command(v)
			haveCommand = true
			b = b[n:]
		case reqFieldKey:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || typ != protowire.BytesType {
				return Request{}, ProtobufError
			}
			req.Key = append([]byte(nil), v...)
			b = b[n:]
		case reqFieldValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || typ != protowire.BytesType {
				return Request{}, ProtobufError
			}
			req.Value = append([]byte(nil), v...)
			b = b[n:]
		case reqFieldVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Request{}, ProtobufError
			}
			ver := int32(int64(v))
			req.Version = &ver
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Request{}, ProtobufError
			}
			b = b[n:]
		}
	}

	if !haveCommand {
		return Request{}, ProtobufError
	}
	if !req.Command.Known() {
		return Request{}, UnrecognizedCommand
	}
	return req, Success
}

// EncodeResponse serialises resp into a KVResponse payload.
func EncodeResponse(resp Response) []byte {
	b := protowire.AppendTag(nil, respFieldErrCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(resp.ErrCode))
	if resp.Value != nil {
		b = protowire.AppendTag(b, respFieldValue, protowire.BytesType)
		b = protowire.AppendBytes(b, resp.Value)
	}
	if resp.PID != nil {
		b = protowire.AppendTag(b, respFieldPID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*resp.PID)))
	}
	if resp.Version != nil {
		b = protowire.AppendTag(b, respFieldVersion, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*resp.Version)))
	}
	if resp.OverloadWaitTime != nil {
		b = protowire.AppendTag(b, respFieldOverloadWaitTime, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*resp.OverloadWaitTime)))
	}
	if resp.MembershipCount != nil {
		b = protowire.AppendTag(b, respFieldMembershipCount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*resp.MembershipCount)))
	}
	return b
}

// DecodeResponse parses a KVResponse payload. It returns ProtobufError if the
// wire form is malformed.
func DecodeResponse(payload []byte) (Response, ErrCode) {
	var resp Response
	var haveErrCode bool

	b := payload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Response{}, ProtobufError
		}
		b = b[n:]

		switch num {
		case respFieldErrCode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Response{}, ProtobufError
			}
			resp.ErrCode = ErrCode(v)
			haveErrCode = true
			b = b[n:]
		case respFieldValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || typ != protowire.BytesType {
				return Response{}, ProtobufError
			}
			resp.Value = append([]byte(nil), v...)
			b = b[n:]
		case respFieldPID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Response{}, ProtobufError
			}
			pid := int32(int64(v))
			resp.PID = &pid
			b = b[n:]
		case respFieldVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Response{}, ProtobufError
			}
			ver := int32(int64(v))
			resp.Version = &ver
			b = b[n:]
		case respFieldOverloadWaitTime:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Response{}, ProtobufError
			}
			wait := int32(int64(v))
			resp.OverloadWaitTime = &wait
			b = b[n:]
		case respFieldMembershipCount:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 || typ != protowire.VarintType {
				return Response{}, ProtobufError
			}
			count := int32(int64(v))
			resp.MembershipCount = &count
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Response{}, ProtobufError
			}
			b = b[n:]
		}
	}

	if !haveErrCode {
		return Response{}, ProtobufError
	}
	return resp, Success
}
