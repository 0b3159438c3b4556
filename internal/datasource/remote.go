package datasource

import (
	"io"
	"net"

	"github.com/kismetwireless/kismet-sub014/internal/codec"
	"github.com/kismetwireless/kismet-sub014/internal/kerrors"
	"go.uber.org/zap"
)

// RemoteListener accepts connections from out-of-process capture
// helpers running on other hosts. Each connection must open with a
// CmdNewSource frame naming the source definition it wants to register;
// anything else is a protocol violation and the connection is dropped.
type RemoteListener struct {
	ln  net.Listener
	log *zap.Logger
}

// ListenRemote binds addr and returns a RemoteListener ready to Accept.
func ListenRemote(addr string, log *zap.Logger) (*RemoteListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, kerrors.New(kerrors.KindDriver, "datasource.ListenRemote", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteListener{ln: ln, log: log}, nil
}

// Addr returns the bound listener address.
func (r *RemoteListener) Addr() net.Addr { return r.ln.Addr() }

// Close stops accepting new connections.
func (r *RemoteListener) Close() error { return r.ln.Close() }

// Accept blocks for the next connection and performs the NEWSOURCE
// handshake, returning the declared source definition and the raw
// connection for the caller to wrap in a Source.
func (r *RemoteListener) Accept() (definition string, conn net.Conn, err error) {
	conn, err = r.ln.Accept()
	if err != nil {
		return "", nil, err
	}

	header := make([]byte, codec.HeaderSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		conn.Close()
		return "", nil, kerrors.New(kerrors.KindDriver, "datasource.Accept", err)
	}

	res, err := codec.Parse(header, 0)
	if err != nil || res.NeedMore > 0 {
		// Need the payload too; read it and reparse.
		need := res.NeedMore
		if need > 0 {
			rest := make([]byte, need)
			if _, rerr := io.ReadFull(conn, rest); rerr != nil {
				conn.Close()
				return "", nil, kerrors.New(kerrors.KindDriver, "datasource.Accept", rerr)
			}
			full := append(header, rest...)
			res, err = codec.Parse(full, 0)
		}
		if err != nil {
			conn.Close()
			return "", nil, err
		}
	}

	if res.Frame.Command != codec.CmdNewSource {
		conn.Close()
		return "", nil, kerrors.New(kerrors.KindDriver, "datasource.Accept",
			kerrors.ErrInvalidFrame)
	}

	def, _ := res.Frame.String("definition")
	return def, conn, nil
}
