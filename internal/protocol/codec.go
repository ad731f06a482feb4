package protocol

import (
	"fmt"

	"github.com/qwe638853/WorldBossRaid/internal/transport"
)

// ReadPacket blocks until a full packet has been read from stream,
// validates its framing and checksum, and returns it. Short reads from
// transient signals are retried transparently inside stream.ReadFull;
// any unrecoverable stream failure or framing violation is returned as
// an error and is fatal to the connection (see ProtocolError).
func ReadPacket(stream transport.SecureStream) (Packet, error) {
	hbuf := make([]byte, HeaderSize)
	if err := stream.ReadFull(hbuf); err != nil {
		return Packet{}, &ProtocolError{Kind: KindTransportClosed, Err: err}
	}
	h, err := DecodeHeader(hbuf)
	if err != nil {
		return Packet{}, &ProtocolError{Kind: KindFraming, Err: err}
	}
	if h.Length < HeaderSize || h.Length > HeaderSize+MaxPayloadSize {
		return Packet{}, &ProtocolError{Kind: KindFraming, Err: ErrFraming}
	}

	payloadLen := h.Length - HeaderSize
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if err := stream.ReadFull(payload); err != nil {
			return Packet{}, &ProtocolError{Kind: KindTransportClosed, Err: err}
		}
	}

	if err := VerifyChecksum(h, payload); err != nil {
		return Packet{}, &ProtocolError{Kind: KindChecksum, Err: err}
	}

	return Packet{Header: h, Payload: payload}, nil
}

// WritePacket encodes opcode+payload with the given sequence number
// and writes it to stream in full.
func WritePacket(stream transport.SecureStream, opcode uint16, seqNum uint32, payload []byte) error {
	wire := Encode(opcode, seqNum, payload)
	if _, err := stream.Write(wire); err != nil {
		return &ProtocolError{Kind: KindTransportClosed, Err: err}
	}
	return nil
}

// ErrorKind enumerates the connection-fatal error taxonomy. None of
// these ever propagate beyond the one connection that produced them.
type ErrorKind int

const (
	KindTransportClosed ErrorKind = iota
	KindFraming
	KindChecksum
	KindReplay
	KindRateLimit
	KindInvalidOpcode
	KindInvalidPayload
	KindInvalidUsername
	KindProtocolOrder
	KindHeartbeatTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportClosed:
		return "TransportClosed"
	case KindFraming:
		return "ProtocolFraming"
	case KindChecksum:
		return "ChecksumMismatch"
	case KindReplay:
		return "ReplayDetected"
	case KindRateLimit:
		return "RateLimitExceeded"
	case KindInvalidOpcode:
		return "InvalidOpcode"
	case KindInvalidPayload:
		return "InvalidPayload"
	case KindInvalidUsername:
		return "InvalidUsername"
	case KindProtocolOrder:
		return "ProtocolOrder"
	case KindHeartbeatTimeout:
		return "HeartbeatTimeout"
	default:
		return "Unknown"
	}
}

// ProtocolError wraps an ErrorKind with its underlying cause. It is
// always fatal to the one connection that produced it.
type ProtocolError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *ProtocolError) Unwrap() error { return e.Err }
