package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxPacketSize bounds a single encrypted frame; anything larger is
// treated as a protocol violation rather than buffered unbounded.
const maxPacketSize = 2 * 1024 * 1024

// Conn wraps a net.Conn with ChaCha20-Poly1305 framing: each Write seals
// one message behind a 4-byte big-endian length prefix and a 12-byte
// nonce built from a monotonic send counter, so out-of-order delivery on
// a stream transport can never reuse a nonce.
type Conn struct {
	net.Conn
	aead    cipher.AEAD
	sendCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

// WrapConn wraps conn once sessionKey has been derived from a completed
// handshake.
func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead}, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, 12)
	binary.BigEndian.PutUint64(nonce[4:], c.sendCtr)
	c.sendCtr++

	ct := c.aead.Seal(nil, nonce, p, nil)
	length := uint32(len(nonce) + len(ct))

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], length)

	if n, err := c.Conn.Write(hdr[:]); err != nil {
		return n, err
	}
	if n, err := c.Conn.Write(nonce); err != nil {
		return n, err
	}
	if n, err := c.Conn.Write(ct); err != nil {
		return n, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.recvBuf.Len() == 0 {
		var hdr [4]byte
		if n, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return n, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxPacketSize {
			return 0, io.ErrUnexpectedEOF
		}

		pkt := make([]byte, length)
		if n, err := io.ReadFull(c.Conn, pkt); err != nil {
			return n, err
		}

		nonce, ct := pkt[:12], pkt[12:]
		pt, err := c.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		c.recvBuf.Write(pt)
	}
	return c.recvBuf.Read(p)
}
