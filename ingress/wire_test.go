package ingress

import (
	"errors"
	"testing"

	"simex/domain/orderbook"
)

func TestParseWire(t *testing.T) {
	w, err := ParseWire([]byte("42,26000,BUY,1518,100,LIMIT,0"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := WireOrder{
		OrderID:    42,
		Instrument: 26000,
		Side:       orderbook.Buy,
		Price:      1518,
		Qty:        100,
		Type:       orderbook.Limit,
	}
	if w != want {
		t.Errorf("got %+v, want %+v", w, want)
	}
}

func TestParseWireTrailingNewline(t *testing.T) {
	if _, err := ParseWire([]byte("1,26000,SELL,1500,10,IOC,0\r\n")); err != nil {
		t.Errorf("CRLF should be stripped: %v", err)
	}
}

func TestParseWireIceberg(t *testing.T) {
	w, err := ParseWire([]byte("7,35000,SELL,1600,120,ICEBERG,40"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if w.Type != orderbook.Iceberg || w.Display != 40 {
		t.Errorf("got type=%v display=%d", w.Type, w.Display)
	}
}

func TestParseWireMalformed(t *testing.T) {
	cases := []string{
		"",
		"1,26000,BUY,1518,100,LIMIT",        // missing display
		"1,26000,BUY,1518,100,LIMIT,0,9",    // extra field
		"x,26000,BUY,1518,100,LIMIT,0",      // bad id
		"1,notanum,BUY,1518,100,LIMIT,0",    // bad instrument
		"1,26000,HOLD,1518,100,LIMIT,0",     // bad side
		"1,26000,buy,1518,100,LIMIT,0",      // side is case sensitive
		"1,26000,BUY,-5,100,LIMIT,0",        // negative price
		"1,26000,BUY,1518,-100,LIMIT,0",     // negative qty
		"1,26000,BUY,1518,100,STOP,0",       // unknown type
		"1,26000,BUY,1518,100,LIMIT,x",      // bad display
		"99999999999999999999,1,BUY,1,1,LIMIT,0", // id overflow
	}
	for _, c := range cases {
		if _, err := ParseWire([]byte(c)); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: got %v, want ErrMalformed", c, err)
		}
	}
}

func TestWireRoundTrip(t *testing.T) {
	orig := WireOrder{
		OrderID:    1234567,
		Instrument: 26000,
		Side:       orderbook.Sell,
		Price:      1520,
		Qty:        55,
		Type:       orderbook.FOK,
	}
	got, err := ParseWire(orig.Append(nil))
	if err != nil {
		t.Fatalf("round trip parse: %v", err)
	}
	if got != orig {
		t.Errorf("got %+v, want %+v", got, orig)
	}
}
