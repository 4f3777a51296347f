package ravrf

import "testing"

func TestHeadRoundTrip(t *testing.T) {
	cases := []struct {
		kind               Kind
		recordSize, a, b   uint32
	}{
		{Available, 13, 0, 0},
		{Available, 52, 100, 200},
		{Data, 13, 13, 0},
		{Meta, 200, 9, 191},
	}
	for _, c := range cases {
		enc := EncodeHead(c.kind, c.recordSize, c.a, c.b)
		if len(enc) != HeadSize {
			t.Fatalf("EncodeHead length = %d, want %d", len(enc), HeadSize)
		}
		dec, err := DecodeHead(enc)
		if err != nil {
			t.Fatalf("DecodeHead failed: %v", err)
		}
		if dec.Kind != c.kind || dec.RecordSize != c.recordSize || dec.FieldA != c.a || dec.FieldB != c.b {
			t.Errorf("round trip mismatch: got %+v, want kind=%v size=%d a=%d b=%d", dec, c.kind, c.recordSize, c.a, c.b)
		}
	}
}

func TestDecodeHeadZeroChecksumAccepted(t *testing.T) {
	b := make([]byte, HeadSize)
	b[0] = byte(Data)
	// record_size, field_a, field_b, checksum all left at zero.
	dec, err := DecodeHead(b)
	if err != nil {
		t.Fatalf("DecodeHead with zero checksum should be accepted: %v", err)
	}
	if dec.Kind != Data {
		t.Errorf("Kind = %v, want Data", dec.Kind)
	}
}

func TestDecodeHeadBadChecksum(t *testing.T) {
	enc := EncodeHead(Data, 13, 13, 0)
	enc[14] ^= 0xFF // corrupt the low checksum byte
	_, err := DecodeHead(enc)
	if CodeOf(err) != BadChecksum {
		t.Fatalf("DecodeHead with corrupted checksum error = %v, want BadChecksum", err)
	}
}

func TestDecodeHeadShortRead(t *testing.T) {
	_, err := DecodeHead(make([]byte, HeadSize-1))
	if CodeOf(err) != ShortRead {
		t.Fatalf("DecodeHead short buffer error = %v, want ShortRead", err)
	}
}

func TestEndRoundTrip(t *testing.T) {
	enc := EncodeEnd(13, Data)
	if len(enc) != EndSize {
		t.Fatalf("EncodeEnd length = %d, want %d", len(enc), EndSize)
	}
	dec, err := DecodeEnd(enc)
	if err != nil {
		t.Fatalf("DecodeEnd failed: %v", err)
	}
	if dec.RecordSize != 13 || dec.Kind != Data {
		t.Errorf("round trip mismatch: got %+v", dec)
	}
}

func TestEndShortRead(t *testing.T) {
	_, err := DecodeEnd(make([]byte, EndSize-1))
	if CodeOf(err) != ShortRead {
		t.Fatalf("DecodeEnd short buffer error = %v, want ShortRead", err)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{Available, Data, Meta} {
		if !k.Valid() {
			t.Errorf("Kind(%v).Valid() = false, want true", k)
		}
	}
	if Kind(0x58).Valid() {
		t.Errorf("Kind(0x58).Valid() = true, want false")
	}
}

func TestOverheadConstants(t *testing.T) {
	if Overhead != 20 {
		t.Errorf("Overhead = %d, want 20", Overhead)
	}
	if HeadSize+EndSize != Overhead {
		t.Errorf("HeadSize+EndSize = %d, want Overhead %d", HeadSize+EndSize, Overhead)
	}
}
