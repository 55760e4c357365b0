package transport

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeFrame_Layout(t *testing.T) {
	got, err := EncodeFrame(0x0064, 0x0002, []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	want := []byte{0xAA, 0x55, 0x0A, 0x00, 0x64, 0x00, 0x02, 0x00, 0xDE, 0xAD}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeFrame() = % X, want % X", got, want)
	}
}

func TestEncodeFrame_TooLarge(t *testing.T) {
	_, err := EncodeFrame(1, 1, make([]byte, MaxFrameSize))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("EncodeFrame() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestReassembler_CompleteFrame(t *testing.T) {
	data, _ := EncodeFrame(100, 3, []byte{1, 2, 3})

	var r Reassembler
	f, ok, err := r.Feed(data)
	if err != nil || !ok {
		t.Fatalf("Feed() = %v, %v, want frame", ok, err)
	}
	if f.Address != 100 || f.Port != 3 || !bytes.Equal(f.Payload, []byte{1, 2, 3}) {
		t.Errorf("Feed() frame = %+v", f)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}
}

func TestReassembler_SplitAcrossReads(t *testing.T) {
	data, _ := EncodeFrame(7, 1, []byte{9, 8, 7, 6})

	tests := []struct {
		name  string
		split int
	}{
		{"one byte", 1},
		{"magic only", 2},
		{"three bytes", 3},
		{"header only", HeaderSize},
		{"mid payload", HeaderSize + 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Reassembler
			if _, ok, err := r.Feed(data[:tt.split]); ok || err != nil {
				t.Fatalf("first Feed() = %v, %v, want pending", ok, err)
			}
			f, ok, err := r.Feed(data[tt.split:])
			if !ok || err != nil {
				t.Fatalf("second Feed() = %v, %v, want frame", ok, err)
			}
			if f.Address != 7 || !bytes.Equal(f.Payload, []byte{9, 8, 7, 6}) {
				t.Errorf("frame = %+v", f)
			}
		})
	}
}

func TestReassembler_BadMagicDiscardsBuffer(t *testing.T) {
	var r Reassembler
	_, ok, err := r.Feed([]byte{0x12, 0x34, 0x0A, 0x00})
	if ok || !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("Feed() = %v, %v, want ErrInvalidMagic", ok, err)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}

	// The next read starts a fresh frame.
	data, _ := EncodeFrame(1, 1, nil)
	if _, ok, err := r.Feed(data); !ok || err != nil {
		t.Errorf("Feed() after discard = %v, %v, want frame", ok, err)
	}
}

func TestReassembler_ShortTotalDiscardsBuffer(t *testing.T) {
	var r Reassembler
	_, ok, err := r.Feed([]byte{0xAA, 0x55, 0x04, 0x00, 0x01, 0x00})
	if ok || !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("Feed() = %v, %v, want ErrInvalidLength", ok, err)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}
}

func TestReassembler_TrailingBytesDropped(t *testing.T) {
	first, _ := EncodeFrame(1, 1, []byte{0x01})
	second, _ := EncodeFrame(2, 1, []byte{0x02})

	var r Reassembler
	f, ok, err := r.Feed(append(first, second...))
	if !ok || err != nil {
		t.Fatalf("Feed() = %v, %v, want frame", ok, err)
	}
	if f.Address != 1 {
		t.Errorf("Address = %d, want 1", f.Address)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0 (second frame dropped)", r.Buffered())
	}
}

func TestReassembler_PayloadIsCopied(t *testing.T) {
	data, _ := EncodeFrame(1, 1, []byte{0x05})

	var r Reassembler
	f, _, _ := r.Feed(data)

	next, _ := EncodeFrame(1, 1, []byte{0x06})
	r.Feed(next)

	if f.Payload[0] != 0x05 {
		t.Errorf("payload mutated to 0x%02X", f.Payload[0])
	}
}
