package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/activation"
)

// newAPIListener serves the sockets passed by systemd socket activation when
// there are any, and listens on addr otherwise
func newAPIListener(addr string) (net.Listener, error) {
	activated, err := activation.Listeners()
	if err != nil {
		return nil, err
	}
	ls := make([]net.Listener, 0, len(activated))
	for _, l := range activated {
		if l != nil {
			ls = append(ls, l)
		}
	}
	if len(ls) > 0 {
		return fanIn(ls), nil
	}
	return newListener(addr)
}

// newListener listens on every address the host of addr resolves to. An empty
// host listens on all interfaces, localhost on every loopback address.
func newListener(addr string) (net.Listener, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		return net.Listen("tcp", addr)
	}
	ips, err := resolveHost(host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return net.Listen("tcp", addr)
	}

	ls := make([]net.Listener, 0, len(ips))
	for _, ip := range ips {
		l, err := net.Listen("tcp", net.JoinHostPort(ip.String(), port))
		if err != nil {
			closeAll(ls)
			return nil, fmt.Errorf("listen %s: %w", ip, err)
		}
		// an ephemeral port is shared by every address once the first one is bound
		if port == "0" {
			port = strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
		}
		ls = append(ls, l)
	}
	if len(ls) == 1 {
		return ls[0], nil
	}
	return fanIn(ls), nil
}

func resolveHost(host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if host != "localhost" {
		return net.LookupIP(host)
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, a := range addrs {
		if n, ok := a.(*net.IPNet); ok && n.IP.IsLoopback() {
			ips = append(ips, n.IP)
		}
	}
	return ips, nil
}

func closeAll(ls []net.Listener) {
	for _, l := range ls {
		l.Close()
	}
}

// fanInListener merges the connections accepted by several listeners
type fanInListener struct {
	ls     []net.Listener
	accept chan accepted

	closeOnce sync.Once
	closed    chan struct{}
}

type accepted struct {
	conn net.Conn
	err  error
}

func fanIn(ls []net.Listener) *fanInListener {
	f := &fanInListener{
		ls:     ls,
		accept: make(chan accepted),
		closed: make(chan struct{}),
	}
	for _, l := range ls {
		go f.serve(l)
	}
	return f
}

// serve forwards accepted connections until l fails or f is closed
func (f *fanInListener) serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		select {
		case f.accept <- accepted{conn: conn, err: err}:
			if err != nil {
				return
			}
		case <-f.closed:
			if conn != nil {
				conn.Close()
			}
			return
		}
	}
}

func (f *fanInListener) Accept() (net.Conn, error) {
	select {
	case a := <-f.accept:
		return a.conn, a.err
	case <-f.closed:
		return nil, net.ErrClosed
	}
}

func (f *fanInListener) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.closed)
		errs := make([]error, 0, len(f.ls))
		for _, l := range f.ls {
			errs = append(errs, l.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Addr returns the address of the first listener
func (f *fanInListener) Addr() net.Addr {
	return f.ls[0].Addr()
}

func (f *fanInListener) String() string {
	addrs := make([]string, 0, len(f.ls))
	for _, l := range f.ls {
		addrs = append(addrs, l.Addr().String())
	}
	return strings.Join(addrs, ",")
}

func printListener(lis net.Listener) string {
	if s, ok := lis.(fmt.Stringer); ok {
		return s.String()
	}
	return lis.Addr().String()
}
