package llp

import (
	"bytes"
	"testing"
)

func FuzzDecodePacket(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x4C, 0x4C})
	f.Add(make([]byte, HeaderSize))
	f.Add(NewKeepalive(7).ToBytes())
	f.Add(NewDataPacket(3, 42, 0x80, []byte("lorem ipsum")).ToBytes())
	f.Add(NewHandshakeInit([]byte(`{"ClientHello":{"protocol_version":1}}`)).ToBytes())
	f.Add(NewDisconnect(0).ToBytes())

	f.Fuzz(func(t *testing.T, data []byte) {
		pkt, err := DecodePacket(data)
		if err != nil {
			if pkt != nil {
				t.Fatal("decode returned both a packet and an error")
			}

			return
		}

		// Any frame the decoder accepts must survive re-encoding untouched.
		if !pkt.VerifyChecksum() {
			t.Fatalf("accepted frame fails checksum verification: %x", data)
		}
		if !bytes.Equal(data, pkt.ToBytes()) {
			t.Fatalf("re-encoded frame differs from input: %x vs %x", pkt.ToBytes(), data)
		}
		if pkt.Size() != len(data) {
			t.Fatalf("size mismatch: %d vs %d", pkt.Size(), len(data))
		}
	})
}

func FuzzDecodeHandshake(f *testing.F) {
	f.Add([]byte(`{"ClientHello":{"client_random":[0],"protocol_version":1}}`))
	f.Add([]byte(`{"ServerHello":{"session_id":"abc123"}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Neither decoder may panic on arbitrary input.
		_, _ = DecodeClientHello(data)
		_, _ = DecodeServerHello(data)
	})
}
