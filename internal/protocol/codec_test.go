package protocol_test

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwe638853/WorldBossRaid/internal/protocol"
)

// fakeStream is an in-memory transport.SecureStream backed by a byte
// buffer, enough to exercise the codec without a real socket.
type fakeStream struct {
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
}

func newFakeStream(preloaded []byte) *fakeStream {
	return &fakeStream{readBuf: bytes.NewBuffer(preloaded), writeBuf: &bytes.Buffer{}}
}

func (f *fakeStream) ReadFull(buf []byte) error {
	_, err := io.ReadFull(f.readBuf, buf)
	return err
}
func (f *fakeStream) Write(buf []byte) (int, error)      { return f.writeBuf.Write(buf) }
func (f *fakeStream) Handshake() error                   { return nil }
func (f *fakeStream) VerifyPeer() error                  { return nil }
func (f *fakeStream) Shutdown() error                    { return nil }
func (f *fakeStream) RemoteAddr() net.Addr               { return nil }
func (f *fakeStream) SetReadDeadline(t time.Time) error  { return nil }

func TestWritePacketThenReadPacket(t *testing.T) {
	stream := newFakeStream(nil)

	payload := protocol.EncodeJoin(protocol.JoinPayload{Username: "dave"})
	require.NoError(t, protocol.WritePacket(stream, protocol.OpJoin, 3, payload))

	stream.readBuf = bytes.NewBuffer(stream.writeBuf.Bytes())
	pkt, err := protocol.ReadPacket(stream)
	require.NoError(t, err)

	assert.Equal(t, protocol.OpJoin, pkt.Header.Opcode)
	assert.EqualValues(t, 3, pkt.Header.SeqNum)

	decoded, ok := protocol.DecodeJoin(pkt.Payload)
	require.True(t, ok)
	assert.Equal(t, "dave", decoded.Username)
}

func TestReadPacketChecksumMismatch(t *testing.T) {
	payload := protocol.EncodeAttack(protocol.AttackPayload{Damage: 4})
	wire := protocol.Encode(protocol.OpAttack, 1, payload)
	wire[len(wire)-1] ^= 0xFF // corrupt one payload byte

	stream := newFakeStream(wire)
	_, err := protocol.ReadPacket(stream)

	var perr *protocol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.KindChecksum, perr.Kind)
}

func TestReadPacketFramingViolation(t *testing.T) {
	h := protocol.Header{Length: protocol.HeaderSize + protocol.MaxPayloadSize + 1, Opcode: protocol.OpJoin}
	stream := newFakeStream(protocol.EncodeHeader(h))

	_, err := protocol.ReadPacket(stream)
	var perr *protocol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.KindFraming, perr.Kind)
}

func TestReadPacketTransportClosed(t *testing.T) {
	stream := newFakeStream(nil)
	_, err := protocol.ReadPacket(stream)

	var perr *protocol.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.KindTransportClosed, perr.Kind)
}
