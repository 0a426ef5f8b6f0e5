// Package configsrv implements the configuration server: a TCP listener
// that accepts one connection at a time, reads up to 32 KiB as one message,
// and parses it into a candidate hierarchy for the reconfiguration
// supervisor to install.
package configsrv

import (
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/klagrassa/prog-tm-bmv2/internal/hierarchy"
	"github.com/klagrassa/prog-tm-bmv2/internal/log"
	"github.com/klagrassa/prog-tm-bmv2/internal/serrors"
)

// DefaultPort is the configuration server's default TCP port.
const DefaultPort = 41200

// MaxMessageSize is the largest configuration document the server will
// read off a single connection.
const MaxMessageSize = 32 * 1024

// MaxBacklog bounds how many reconfiguration attempts the listener accepts
// concurrently; they are still processed serially by the reconfiguration
// supervisor.
const MaxBacklog = 3

// Server listens for configuration documents and parses each one into a
// candidate hierarchy.Spec, delivered to Specs for the reconfiguration
// supervisor to consume.
type Server struct {
	Addr  string
	Specs chan *hierarchy.Spec
}

// New returns a Server listening on addr (host:port, or ":41200"-style if
// host is omitted) with the specification's default backlog.
func New(addr string) *Server {
	return &Server{
		Addr:  addr,
		Specs: make(chan *hierarchy.Spec, MaxBacklog),
	}
}

// Run accepts connections until stop is closed. A socket setup failure (the
// initial Listen) or a failed Accept ends Run with an error; a failure to
// read a given connection is logged and the listener keeps serving
// subsequent connections.
func (s *Server) Run(stop <-chan struct{}) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return serrors.Wrap("configuration listener socket setup failed", err, "addr", s.Addr)
	}
	defer ln.Close()

	logger := log.Root().New("worker", "config_listener", "addr", s.Addr)
	logger.Info("configuration listener starting")
	defer logger.Info("configuration listener stopping")

	go func() {
		<-stop
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			logger.Error("accept failed", "err", err.Error())
			return serrors.Wrap("configuration listener accept failed", err)
		}
		s.handleConn(logger, conn)
	}
}

func (s *Server) handleConn(logger log.Logger, conn net.Conn) {
	defer conn.Close()
	attempt := uuid.New().String()

	buf := make([]byte, MaxMessageSize)
	n, err := io.ReadFull(conn, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		logger.Error("read failed", "attempt", attempt, "err", err.Error())
		return
	}
	doc := buf[:n]

	spec, perr := hierarchy.Parse(doc)
	if perr != nil {
		logger.Error("configuration parse failed, dropping document", "attempt", attempt, "err", perr.Error())
		return
	}

	logger.Info("configuration document accepted", "attempt", attempt, "nodes", len(spec.Nodes))
	select {
	case s.Specs <- spec:
	default:
		logger.Warn("reconfiguration backlog full, dropping document", "attempt", attempt)
	}
}
