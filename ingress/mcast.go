package ingress

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const maxDatagram = 2048

// Conn wraps a UDP multicast socket for either receiving (JoinGroup)
// or sending (DialGroup). ipv4.PacketConn gives explicit control over
// the group interface and loopback, which the stdlib helper hides.
type Conn struct {
	pc    *ipv4.PacketConn
	base  net.PacketConn
	group *net.UDPAddr
}

// JoinGroup binds the multicast port with address reuse and joins the
// group on the configured interface, falling back to the default
// interface when the named one is unusable.
func JoinGroup(groupIP, ifaceName string, port int) (*Conn, error) {
	group := net.ParseIP(groupIP)
	if group == nil {
		return nil, fmt.Errorf("ingress: bad multicast ip %q", groupIP)
	}

	lc := net.ListenConfig{Control: reuseAddr}
	base, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("ingress: bind port %d: %w", port, err)
	}

	pc := ipv4.NewPacketConn(base)
	iface := lookupIface(ifaceName)
	if err := pc.JoinGroup(iface, &net.UDPAddr{IP: group}); err != nil {
		if iface == nil {
			base.Close()
			return nil, fmt.Errorf("ingress: join %s: %w", groupIP, err)
		}
		log.Warn().
			Str("iface", ifaceName).
			Err(err).
			Msg("multicast join on iface failed, falling back to default")
		if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
			base.Close()
			return nil, fmt.Errorf("ingress: join %s: %w", groupIP, err)
		}
	}

	return &Conn{pc: pc, base: base, group: &net.UDPAddr{IP: group, Port: port}}, nil
}

// DialGroup opens a sending socket for the group, pinning the outgoing
// interface and enabling loopback so same-host engines receive.
func DialGroup(groupIP, ifaceName string, port int) (*Conn, error) {
	group := net.ParseIP(groupIP)
	if group == nil {
		return nil, fmt.Errorf("ingress: bad multicast ip %q", groupIP)
	}

	base, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("ingress: open sender: %w", err)
	}

	pc := ipv4.NewPacketConn(base)
	if iface := lookupIface(ifaceName); iface != nil {
		if err := pc.SetMulticastInterface(iface); err != nil {
			log.Warn().Str("iface", ifaceName).Err(err).Msg("set multicast interface failed")
		}
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		log.Warn().Err(err).Msg("set multicast loopback failed")
	}

	return &Conn{pc: pc, base: base, group: &net.UDPAddr{IP: group, Port: port}}, nil
}

func (c *Conn) Read(buf []byte) (int, error) {
	n, _, _, err := c.pc.ReadFrom(buf)
	return n, err
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.pc.SetReadDeadline(t)
}

func (c *Conn) Send(payload []byte) error {
	_, err := c.pc.WriteTo(payload, nil, c.group)
	return err
}

func (c *Conn) Close() error {
	return c.base.Close()
}

func lookupIface(name string) *net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		log.Warn().Str("iface", name).Err(err).Msg("interface lookup failed")
		return nil
	}
	return iface
}

func reuseAddr(network, address string, c syscall.RawConn) error {
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return opErr
}
