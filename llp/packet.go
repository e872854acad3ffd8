package llp

import (
	"encoding/binary"
	"time"

	"github.com/arloliu/go-llp/internal/util"
)

// ProtocolID is the fixed 16-bit magic constant identifying the LLP
// protocol family ("LL"). Frames whose protocol identifier differs are
// rejected at decode time.
const ProtocolID uint16 = 0x4C4C

const (
	// HeaderSize is the size of the LLP packet header in bytes.
	HeaderSize = 24
	// checksumOffset is the byte offset of the checksum field in the header.
	// The checksum is computed over header[:checksumOffset] plus the payload.
	checksumOffset = 22
)

// Packet type codes defining the payload interpretation of an LLP packet.
const (
	// UndefinedType is reported by Packet.Type for reserved or unknown codes.
	UndefinedType byte = 0x00
	// DataType carries opaque application data.
	DataType byte = 0x01
	// AckType is reserved for acknowledgment frames; it is carried but has
	// no semantics at this layer.
	AckType byte = 0x02
	// HandshakeInitType carries a ClientHello handshake payload.
	HandshakeInitType byte = 0x03
	// HandshakeRspType carries a ServerHello handshake payload.
	HandshakeRspType byte = 0x04
	// KeepaliveType is a liveness probe or its reply; the payload is empty.
	KeepaliveType byte = 0x05
	// DisconnectType signals graceful session termination; the payload is empty.
	DisconnectType byte = 0x06
)

var packetTypeMap = map[byte]string{
	DataType:          "data",
	AckType:           "ack",
	HandshakeInitType: "handshake.init",
	HandshakeRspType:  "handshake.rsp",
	KeepaliveType:     "keepalive",
	DisconnectType:    "disconnect",
	UndefinedType:     "undefined",
}

// Packet represents a single LLP frame: a fixed 24-byte big-endian header
// followed by an opaque payload.
//
// A Packet is a value constructed per send operation; it has no identity
// beyond its wire representation. The header layout is:
//
//	offset 0  (2 bytes): protocol identifier (0x4C4C)
//	offset 2  (1 byte):  packet type
//	offset 3  (2 bytes): stream identifier
//	offset 5  (8 bytes): sequence number
//	offset 13 (8 bytes): timestamp, milliseconds since Unix epoch
//	offset 21 (1 byte):  flags
//	offset 22 (2 bytes): CRC16 checksum over header[0:22] plus payload
type Packet struct {
	header  []byte
	payload []byte
}

// NewPacket creates an LLP packet with the given type, stream identifier,
// sequence number, flags and payload. The timestamp field is stamped with
// the current wall clock and the checksum is sealed.
//
// The payload is cloned; the caller may reuse its buffer after the call.
func NewPacket(packetType byte, streamID uint16, seq uint64, flags byte, payload []byte) *Packet {
	return NewPacketAt(packetType, streamID, seq, flags, payload, time.Now())
}

// NewPacketAt creates an LLP packet with an explicit creation time.
// The timestamp field is advisory only; peers must not rely on it for
// ordering.
func NewPacketAt(packetType byte, streamID uint16, seq uint64, flags byte, payload []byte, now time.Time) *Packet {
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(header[0:2], ProtocolID)
	header[2] = packetType
	binary.BigEndian.PutUint16(header[3:5], streamID)
	binary.BigEndian.PutUint64(header[5:13], seq)
	binary.BigEndian.PutUint64(header[13:21], uint64(now.UnixMilli())) //nolint:gosec
	header[21] = flags

	p := &Packet{header: header, payload: util.CloneSlice(payload, 0)}
	p.sealChecksum()

	return p
}

// NewDataPacket creates a Data packet on the given stream.
func NewDataPacket(streamID uint16, seq uint64, flags byte, payload []byte) *Packet {
	return NewPacket(DataType, streamID, seq, flags, payload)
}

// NewHandshakeInit creates a HandshakeInit packet carrying an encoded
// ClientHello payload. Handshake packets travel on the control stream
// with sequence number 0.
func NewHandshakeInit(payload []byte) *Packet {
	return NewPacket(HandshakeInitType, uint16(ControlStream), 0, 0, payload)
}

// NewHandshakeRsp creates a HandshakeRsp packet carrying an encoded
// ServerHello payload, replying to the given HandshakeInit packet on the
// same stream and sequence number.
func NewHandshakeRsp(initPkt *Packet, payload []byte) (*Packet, error) {
	if initPkt.Type() != HandshakeInitType {
		return nil, ErrUnexpectedPacketType
	}

	return NewPacket(HandshakeRspType, initPkt.StreamID(), initPkt.SequenceNumber(), 0, payload), nil
}

// NewKeepalive creates a Keepalive packet with an empty payload on the
// control stream. The total frame is exactly 24 bytes.
func NewKeepalive(seq uint64) *Packet {
	return NewPacket(KeepaliveType, uint16(ControlStream), seq, 0, nil)
}

// NewKeepaliveRsp creates a Keepalive reply echoing the stream and
// sequence number of the given Keepalive packet.
func NewKeepaliveRsp(req *Packet) (*Packet, error) {
	if req.Type() != KeepaliveType {
		return nil, ErrUnexpectedPacketType
	}

	return NewPacket(KeepaliveType, req.StreamID(), req.SequenceNumber(), 0, nil), nil
}

// NewDisconnect creates a Disconnect packet with an empty payload on the
// control stream. No reply is expected.
func NewDisconnect(seq uint64) *Packet {
	return NewPacket(DisconnectType, uint16(ControlStream), seq, 0, nil)
}

// Type returns the packet type code, or UndefinedType for reserved codes.
// Use RawType to inspect the code as transmitted.
func (p *Packet) Type() byte {
	t := p.header[2]
	if _, ok := packetTypeMap[t]; !ok {
		return UndefinedType
	}

	return t
}

// RawType returns the packet type code exactly as carried on the wire,
// including reserved codes.
func (p *Packet) RawType() byte {
	return p.header[2]
}

// StreamID returns the logical stream identifier of the packet.
func (p *Packet) StreamID() uint16 {
	return binary.BigEndian.Uint16(p.header[3:5])
}

// SetStreamID sets the stream identifier and reseals the checksum.
func (p *Packet) SetStreamID(streamID uint16) {
	binary.BigEndian.PutUint16(p.header[3:5], streamID)
	p.sealChecksum()
}

// SequenceNumber returns the per-stream sequence counter of the packet.
func (p *Packet) SequenceNumber() uint64 {
	return binary.BigEndian.Uint64(p.header[5:13])
}

// SetSequenceNumber sets the sequence number and reseals the checksum.
func (p *Packet) SetSequenceNumber(seq uint64) {
	binary.BigEndian.PutUint64(p.header[5:13], seq)
	p.sealChecksum()
}

// Timestamp returns the sender-recorded creation time of the packet in
// milliseconds since the Unix epoch. The field is advisory only.
func (p *Packet) Timestamp() uint64 {
	return binary.BigEndian.Uint64(p.header[13:21])
}

// Flags returns the 8-bit flags field. LLP assigns no semantics to flag
// bits; they are carried faithfully.
func (p *Packet) Flags() byte {
	return p.header[21]
}

// SetFlags sets the flags field and reseals the checksum.
func (p *Packet) SetFlags(flags byte) {
	p.header[21] = flags
	p.sealChecksum()
}

// Checksum returns the CRC16 checksum field of the header.
func (p *Packet) Checksum() uint16 {
	return binary.BigEndian.Uint16(p.header[checksumOffset:HeaderSize])
}

// Payload returns the opaque payload bytes of the packet. The returned
// slice aliases the packet's internal buffer.
func (p *Packet) Payload() []byte {
	return p.payload
}

// Header returns the 24-byte packet header. The returned slice aliases the
// packet's internal buffer.
func (p *Packet) Header() []byte {
	return p.header
}

// Size returns the total frame size in bytes.
func (p *Packet) Size() int {
	return HeaderSize + len(p.payload)
}

// IsControl reports whether the packet is a control packet (handshake,
// keepalive or disconnect).
func (p *Packet) IsControl() bool {
	switch p.header[2] {
	case HandshakeInitType, HandshakeRspType, KeepaliveType, DisconnectType:
		return true
	default:
		return false
	}
}

// ToBytes serializes the packet into its wire representation: the 24-byte
// header followed by the payload.
func (p *Packet) ToBytes() []byte {
	result := make([]byte, 0, p.Size())
	result = append(result, p.header...)
	result = append(result, p.payload...)

	return result
}

// Clone creates a deep copy of the packet, allowing modifications to the
// clone without affecting the original.
func (p *Packet) Clone() *Packet {
	return &Packet{
		header:  util.CloneSlice(p.header, HeaderSize),
		payload: util.CloneSlice(p.payload, 0),
	}
}

// VerifyChecksum reports whether the transmitted checksum matches the
// checksum recomputed over the canonical domain.
func (p *Packet) VerifyChecksum() bool {
	return p.Checksum() == p.computeChecksum()
}

// computeChecksum computes the CRC16 over the canonical checksum domain:
// every header byte preceding the checksum field, then the payload.
func (p *Packet) computeChecksum() uint16 {
	crc := CRC16(p.header[:checksumOffset])
	return CRC16Update(crc, p.payload)
}

func (p *Packet) sealChecksum() {
	binary.BigEndian.PutUint16(p.header[checksumOffset:HeaderSize], p.computeChecksum())
}

// TypeName returns the human-readable name of a packet type code.
func TypeName(packetType byte) string {
	name, ok := packetTypeMap[packetType]
	if !ok {
		return "undefined"
	}

	return name
}

// PacketInfo returns structured packet information suitable for passing to
// a logger as key-value pairs, prefixed by the given key-values.
func PacketInfo(p *Packet, keyValues ...any) []any {
	info := []any{
		"type", TypeName(p.Type()),
		"stream", p.StreamID(),
		"seq", p.SequenceNumber(),
		"size", p.Size(),
	}

	result := make([]any, 0, len(keyValues)+len(info))
	result = append(result, keyValues...)
	result = append(result, info...)

	return result
}
