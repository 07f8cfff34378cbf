package orderbook

// Manager owns one Book per instrument token. The set of instruments
// is fixed at construction; orders for unknown tokens are refused.
type Manager struct {
	books map[Token]*Book
}

func NewManager(cfg Config, tokens []Token) *Manager {
	books := make(map[Token]*Book, len(tokens))
	for _, token := range tokens {
		books[token] = NewBook(token, cfg)
	}
	return &Manager{books: books}
}

func (m *Manager) Book(token Token) (*Book, bool) {
	b, ok := m.books[token]
	return b, ok
}

// Submit routes by the order's token.
func (m *Manager) Submit(o *Order) error {
	b, ok := m.books[o.Token]
	if !ok {
		return ErrNotFound
	}
	return b.Submit(o)
}

func (m *Manager) ForEach(fn func(*Book)) {
	for _, b := range m.books {
		fn(b)
	}
}

func (m *Manager) Start() {
	for _, b := range m.books {
		b.Start()
	}
}

func (m *Manager) Close() {
	for _, b := range m.books {
		b.Close()
	}
}
