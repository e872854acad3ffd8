// Package llp implements the core of the LLP framing protocol: a
// checksummed binary framing layer used to establish a session between a
// client and a server over a reliable byte stream and exchange typed
// packets (handshake, data, keepalive, disconnect) with integrity
// verification.
//
// The package is transport agnostic. It provides:
//   - the CRC-16/CCITT-FALSE checksum engine (CRC16, CRC16Update),
//   - the packet codec (Packet, NewPacket, DecodePacket) over the fixed
//     24-byte big-endian header,
//   - the structured handshake payloads (ClientHello, ServerHello) and
//     their JSON codec,
//   - the guarded session state machine (ConnStateMgr),
//   - per-stream sequence number assignment (SeqGenerator).
//
// The TCP binding of the protocol, with active (client) and passive
// (server) connection modes, lives in the llptcp package.
//
// LLP does not encrypt or authenticate payload content and performs no
// retransmission, flow control or congestion control; it guarantees
// framing and integrity only.
package llp
