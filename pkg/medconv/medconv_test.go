package medconv

import (
	"errors"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want Format
	}{
		{"pnp extension", "exam.PNP", nil, FormatPNP},
		{"zak extension", "report.zak", nil, FormatZAK},
		{"pnp tag sniff", "capture.bin", []byte("xx* ZhEL *yy\x00"), FormatPNP},
		{"text sniff", "report.txt", []byte("РЕОВАЗОГРАММА\nтекст"), FormatZAK},
		{"binary junk", "blob.bin", []byte{0x00, 0x01, 0x02}, FormatUnknown},
		{"empty", "blob.bin", nil, FormatUnknown},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.file, tt.data); got != tt.want {
			t.Errorf("%s: DetectFormat = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeDispatch(t *testing.T) {
	res, err := Decode([]byte("ЗАКЛЮЧЕНИЕ\n1. Тонус : норма\n"), "report.zak", Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Format != FormatZAK || res.ZAK == nil || res.PNP != nil {
		t.Errorf("result = %+v", res)
	}

	res, err = Decode(nil, "exam.pnp", Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Format != FormatPNP || res.PNP == nil {
		t.Errorf("result = %+v", res)
	}
	if res.PNP.Btps.Factor != 1.081 {
		t.Errorf("fallback factor = %v", res.PNP.Btps.Factor)
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01}, "blob.bin", Options{})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}
