package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Data endpoint framing. A connection carries one or more sequential
// request/response exchanges:
//
//	request:  uint16 magic | uint16 len(mediaID) | mediaID | uint32 index
//	response: uint8 status | uint64 length | payload
//
// Status distinguishes "chunk not found" from a malformed request so the
// requester can decide between trying another peer and abandoning.
const (
	frameMagic = uint16(0x4D4D)

	maxMediaIDLen = 256
)

type Status uint8

const (
	StatusOK Status = iota + 1
	StatusNotFound
	StatusBadRequest
)

var (
	ErrBadFrame       = errors.New("malformed data frame")
	ErrRemoteNotFound = errors.New("remote peer does not hold chunk")
	ErrRemoteRejected = errors.New("remote peer rejected request")
)

type ChunkRequest struct {
	MediaID string
	Index   int
}

func writeChunkRequest(w io.Writer, req ChunkRequest) error {
	id := []byte(req.MediaID)
	buf := make([]byte, 0, 8+len(id))
	buf = binary.BigEndian.AppendUint16(buf, frameMagic)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(id)))
	buf = append(buf, id...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(req.Index))

	_, err := w.Write(buf)
	return err
}

// readChunkRequest parses one request frame. io.EOF before any bytes means
// the peer closed cleanly between requests.
func readChunkRequest(r io.Reader) (ChunkRequest, error) {
	var header [4]byte
	_, err := io.ReadFull(r, header[:])
	if err != nil {
		if err == io.EOF {
			return ChunkRequest{}, io.EOF
		}
		return ChunkRequest{}, fmt.Errorf("%w: short header", ErrBadFrame)
	}

	if binary.BigEndian.Uint16(header[:2]) != frameMagic {
		return ChunkRequest{}, fmt.Errorf("%w: bad magic", ErrBadFrame)
	}

	idLen := int(binary.BigEndian.Uint16(header[2:4]))
	if idLen == 0 || idLen > maxMediaIDLen {
		return ChunkRequest{}, fmt.Errorf("%w: media id length %d", ErrBadFrame, idLen)
	}

	body := make([]byte, idLen+4)
	_, err = io.ReadFull(r, body)
	if err != nil {
		return ChunkRequest{}, fmt.Errorf("%w: short body", ErrBadFrame)
	}

	return ChunkRequest{
		MediaID: string(body[:idLen]),
		Index:   int(binary.BigEndian.Uint32(body[idLen:])),
	}, nil
}

func writeResponseHeader(w io.Writer, status Status, length uint64) error {
	buf := make([]byte, 0, 9)
	buf = append(buf, byte(status))
	buf = binary.BigEndian.AppendUint64(buf, length)

	_, err := w.Write(buf)
	return err
}

func readResponseHeader(r io.Reader) (Status, uint64, error) {
	var header [9]byte
	_, err := io.ReadFull(r, header[:])
	if err != nil {
		return 0, 0, err
	}

	return Status(header[0]), binary.BigEndian.Uint64(header[1:]), nil
}
