package ingress

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"
)

// Listener reads multicast datagrams and hands each payload to the
// dispatcher. One datagram carries one wire order.
type Listener struct {
	conn       *Conn
	dispatcher *Dispatcher
}

func NewListener(conn *Conn, dispatcher *Dispatcher) *Listener {
	return &Listener{conn: conn, dispatcher: dispatcher}
}

// Run loops until the tomb dies. Short read deadlines keep the loop
// responsive to shutdown without busy-waiting.
func (l *Listener) Run(t *tomb.Tomb) error {
	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return err
		}
		n, err := l.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-t.Dying():
				return nil
			default:
			}
			log.Warn().Err(err).Msg("multicast read failed")
			continue
		}
		if n == 0 {
			continue
		}
		l.dispatcher.Dispatch(buf[:n])
	}
}
