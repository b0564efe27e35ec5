package core

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"testing"
)

func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func TestStreamDecode(t *testing.T) {
	content := []byte("所有權人 地址 權利範圍")
	hexed := []byte(hex.EncodeToString(zlibCompress(content)) + ">")

	tests := []struct {
		name string
		dict Dict
		data []byte
	}{
		{name: "no filter", dict: Dict{}, data: content},
		{name: "flate", dict: Dict{"Filter": Name("FlateDecode")}, data: zlibCompress(content)},
		{name: "abbreviated", dict: Dict{"Filter": Name("Fl")}, data: zlibCompress(content)},
		{name: "chain", dict: Dict{"Filter": Array{Name("AHx"), Name("FlateDecode")}}, data: hexed},
		{
			name: "chain with null params",
			dict: Dict{"Filter": Array{Name("ASCIIHexDecode"), Name("FlateDecode")}, "DecodeParms": Array{Null{}, Dict{"Predictor": Int(1)}}},
			data: hexed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Stream{Dict: tt.dict, Data: tt.data}
			got, err := s.Decode()
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("got %q, want %q", got, content)
			}
		})
	}
}

func TestStreamDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		dict Dict
	}{
		{name: "unknown filter", dict: Dict{"Filter": Name("Bogus")}},
		{name: "filter not a name", dict: Dict{"Filter": Array{Int(3)}}},
		{name: "filter wrong type", dict: Dict{"Filter": Int(1)}},
		{name: "jbig2", dict: Dict{"Filter": Name("JBIG2Decode")}},
		{name: "crypt", dict: Dict{"Filter": Name("Crypt"), "DecodeParms": Dict{"Name": Name("StdCF")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Stream{Dict: tt.dict, Data: []byte("x")}
			if _, err := s.Decode(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStreamDecodeForImage(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	s := &Stream{
		Dict: Dict{"Filter": Array{Name("FlateDecode"), Name("DCTDecode")}},
		Data: zlibCompress(jpeg),
	}
	data, codec, err := s.DecodeForImage()
	if err != nil {
		t.Fatal(err)
	}
	if codec == nil || codec.Name != "DCTDecode" {
		t.Fatalf("codec = %v, want DCTDecode", codec)
	}
	if !bytes.Equal(data, jpeg) {
		t.Errorf("data = %v, want %v", data, jpeg)
	}

	raw := &Stream{Dict: Dict{"Filter": Name("FlateDecode")}, Data: zlibCompress([]byte{1, 2, 3})}
	data, codec, err = raw.DecodeForImage()
	if err != nil || codec != nil || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("raw samples: data=%v codec=%v err=%v", data, codec, err)
	}

	fax := &Stream{Dict: Dict{"Filter": Name("CCF"), "DecodeParms": Dict{"K": Int(-1), "Columns": Int(8)}}, Data: []byte{0}}
	_, codec, err = fax.DecodeForImage()
	if err != nil || codec == nil || codec.Name != "CCITTFaxDecode" {
		t.Fatalf("fax codec = %v, err = %v", codec, err)
	}
	if k, _ := codec.Params.GetInt("K"); k != -1 {
		t.Errorf("codec params K = %d, want -1", k)
	}
}

func TestFilterParams(t *testing.T) {
	p := FilterParams(Dict{"Predictor": Int(12), "Scale": Real(0.5), "BlackIs1": Bool(true), "Name": Name("X")})
	if p["Predictor"] != 12 || p["Scale"] != 0.5 || p["BlackIs1"] != true || p["Name"] != "X" {
		t.Errorf("FilterParams = %v", p)
	}
	if FilterParams(nil) != nil {
		t.Error("nil dict should give nil params")
	}
}
