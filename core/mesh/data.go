package mesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/mediamesh/mediamesh/core/chunkstore"
	"github.com/mediamesh/mediamesh/lib/logger"
)

var log, _ = logger.New("mesh")

// DataServer is the raw TCP endpoint peers dial to fetch chunk bytes. One
// goroutine per connection; a connection serves sequential requests until
// the peer closes it or sends a malformed frame.
type DataServer struct {
	chunks *chunkstore.Store
	addr   string
}

func NewDataServer(cfg *Config, chunks *chunkstore.Store) *DataServer {
	return &DataServer{
		chunks: chunks,
		addr:   fmt.Sprintf("%s:%d", cfg.Data.Host, cfg.Data.Port),
	}
}

// Start listens and accepts until ctx is cancelled.
func (d *DataServer) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", d.addr)
	if err != nil {
		return err
	}

	return d.serve(ctx, l)
}

func (d *DataServer) serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	log.Infow("startup", "status", "mesh data endpoint started", "address", l.Addr().String())

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			log.Errorw("accept", "error", err)
			continue
		}

		go d.handleConn(conn)
	}
}

func (d *DataServer) handleConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()

	for {
		req, err := readChunkRequest(conn)
		if err == io.EOF {
			return
		}
		if err != nil {
			// reject the frame without tearing down the listener or
			// other connections
			log.Warnw("data", "status", "malformed request", "remote", remote, "error", err)
			writeResponseHeader(conn, StatusBadRequest, 0)
			return
		}

		err = d.serveChunk(conn, req)
		if err != nil {
			log.Warnw("data", "status", "chunk transfer aborted", "remote", remote,
				"media", req.MediaID, "index", req.Index, "error", err)
			return
		}
	}
}

// serveChunk streams the requested chunk back, or an explicit not-found
// signal when the chunk is absent locally. A transport error mid-copy ends
// the connection; the requester can retry against another peer.
func (d *DataServer) serveChunk(conn net.Conn, req ChunkRequest) error {
	rc, size, err := d.chunks.OpenChunk(req.MediaID, req.Index)
	if err != nil {
		if errors.Is(err, chunkstore.ErrChunkNotFound) {
			return writeResponseHeader(conn, StatusNotFound, 0)
		}
		return err
	}
	defer rc.Close()

	err = writeResponseHeader(conn, StatusOK, uint64(size))
	if err != nil {
		return err
	}

	_, err = io.CopyN(conn, rc, size)
	return err
}

// FetchChunk dials a peer's data endpoint and retrieves one chunk. A
// not-found reply surfaces as ErrRemoteNotFound, distinct from transport
// failures.
func FetchChunk(addr, mediaID string, index int) ([]byte, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return fetchChunk(conn, mediaID, index)
}

func fetchChunk(conn net.Conn, mediaID string, index int) ([]byte, error) {
	err := writeChunkRequest(conn, ChunkRequest{MediaID: mediaID, Index: index})
	if err != nil {
		return nil, err
	}

	status, length, err := readResponseHeader(conn)
	if err != nil {
		return nil, err
	}

	switch status {
	case StatusOK:
	case StatusNotFound:
		return nil, fmt.Errorf("%w: media %s index %d", ErrRemoteNotFound, mediaID, index)
	case StatusBadRequest:
		return nil, ErrRemoteRejected
	default:
		return nil, fmt.Errorf("%w: unknown status %d", ErrBadFrame, status)
	}

	data := make([]byte, length)
	_, err = io.ReadFull(conn, data)
	if err != nil {
		return nil, err
	}

	return data, nil
}
