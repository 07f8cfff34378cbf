package orderbook

import "testing"

func benchSubmit(b *testing.B, cfg Config) {
	book := NewBook(26000, cfg)
	base := Price(1500)

	// seed some resting depth on both sides
	var id OrderID
	for i := 0; i < 64; i++ {
		id++
		book.Submit(&Order{ID: id, Token: 26000, Side: Buy, Type: Limit, Price: base - Price(i%16) - 1, Total: 100})
		id++
		book.Submit(&Order{ID: id, Token: 26000, Side: Sell, Type: Limit, Price: base + Price(i%16) + 1, Total: 100})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id++
		side := Buy
		px := base - Price(i%8)
		if i&1 == 1 {
			side = Sell
			px = base + Price(i%8)
		}
		book.Submit(&Order{ID: id, Token: 26000, Side: side, Type: Limit, Price: px, Total: 10})
		// keep the ring from filling; dispatch is not under test
		for {
			if _, ok := book.ring.pop(); !ok {
				break
			}
		}
	}
}

func BenchmarkSubmitRing(b *testing.B) {
	benchSubmit(b, Config{Backend: BackendRing})
}

func BenchmarkSubmitMap(b *testing.B) {
	benchSubmit(b, Config{Backend: BackendMap})
}

func BenchmarkCancel(b *testing.B) {
	book := NewBook(26000, Config{Backend: BackendRing})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := OrderID(i + 1)
		book.Submit(&Order{ID: id, Token: 26000, Side: Buy, Type: Limit, Price: 1500, Total: 10})
		book.Cancel(id)
	}
}
