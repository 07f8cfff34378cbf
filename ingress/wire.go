package ingress

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"simex/domain/orderbook"
)

// WireOrder is one parsed ingest message:
//
//	<order_id>,<instrument>,<side>,<price>,<qty>,<type>,<display>
//
// All integers are unsigned base-10; display is 0 unless ICEBERG.
type WireOrder struct {
	OrderID    orderbook.OrderID
	Instrument orderbook.Token
	Side       orderbook.Side
	Price      orderbook.Price
	Qty        orderbook.Qty
	Type       orderbook.OrderType
	Display    orderbook.Qty
}

var ErrMalformed = errors.New("ingress: malformed wire order")

const wireFields = 7

// ParseWire is strict: any malformed field drops the whole message.
func ParseWire(line []byte) (WireOrder, error) {
	line = bytes.TrimRight(line, "\r\n")
	var fields [wireFields][]byte
	start := 0
	for i := 0; i < wireFields; i++ {
		if i+1 == wireFields {
			fields[i] = line[start:]
			break
		}
		end := bytes.IndexByte(line[start:], ',')
		if end < 0 {
			return WireOrder{}, fmt.Errorf("%w: expected %d fields", ErrMalformed, wireFields)
		}
		fields[i] = line[start : start+end]
		start += end + 1
	}
	if bytes.IndexByte(fields[wireFields-1], ',') >= 0 {
		return WireOrder{}, fmt.Errorf("%w: too many fields", ErrMalformed)
	}

	var (
		w   WireOrder
		err error
	)
	var v uint64
	if v, err = strconv.ParseUint(string(fields[0]), 10, 64); err != nil {
		return WireOrder{}, fmt.Errorf("%w: order id %q", ErrMalformed, fields[0])
	}
	w.OrderID = orderbook.OrderID(v)
	if v, err = strconv.ParseUint(string(fields[1]), 10, 32); err != nil {
		return WireOrder{}, fmt.Errorf("%w: instrument %q", ErrMalformed, fields[1])
	}
	w.Instrument = orderbook.Token(v)
	side, ok := sideFromString(string(fields[2]))
	if !ok {
		return WireOrder{}, fmt.Errorf("%w: side %q", ErrMalformed, fields[2])
	}
	w.Side = side
	if v, err = strconv.ParseUint(string(fields[3]), 10, 63); err != nil {
		return WireOrder{}, fmt.Errorf("%w: price %q", ErrMalformed, fields[3])
	}
	w.Price = orderbook.Price(v)
	if v, err = strconv.ParseUint(string(fields[4]), 10, 63); err != nil {
		return WireOrder{}, fmt.Errorf("%w: qty %q", ErrMalformed, fields[4])
	}
	w.Qty = orderbook.Qty(v)
	typ, ok := typeFromString(string(fields[5]))
	if !ok {
		return WireOrder{}, fmt.Errorf("%w: type %q", ErrMalformed, fields[5])
	}
	w.Type = typ
	if v, err = strconv.ParseUint(string(fields[6]), 10, 63); err != nil {
		return WireOrder{}, fmt.Errorf("%w: display %q", ErrMalformed, fields[6])
	}
	w.Display = orderbook.Qty(v)

	return w, nil
}

// Append serializes in the wire format, reusing dst's capacity.
func (w WireOrder) Append(dst []byte) []byte {
	dst = strconv.AppendUint(dst, uint64(w.OrderID), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(w.Instrument), 10)
	dst = append(dst, ',')
	dst = append(dst, w.Side.String()...)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(w.Price), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(w.Qty), 10)
	dst = append(dst, ',')
	dst = append(dst, w.Type.String()...)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(w.Display), 10)
	return dst
}

func sideFromString(s string) (orderbook.Side, bool) {
	switch s {
	case "BUY":
		return orderbook.Buy, true
	case "SELL":
		return orderbook.Sell, true
	default:
		return orderbook.SideInvalid, false
	}
}

func typeFromString(s string) (orderbook.OrderType, bool) {
	switch s {
	case "LIMIT":
		return orderbook.Limit, true
	case "MARKET":
		return orderbook.Market, true
	case "IOC":
		return orderbook.IOC, true
	case "FOK":
		return orderbook.FOK, true
	case "ICEBERG":
		return orderbook.Iceberg, true
	default:
		return orderbook.Limit, false
	}
}
