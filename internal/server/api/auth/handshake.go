package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lumenhub/lumend/apitypes"
	"github.com/lumenhub/lumend/internal/server/api/apierror"
)

const (
	// HandshakeMagic prefixes an authenticated connection's first bytes,
	// distinguishing it from a plain (local, unauthenticated) command.
	HandshakeMagic = "lVI1\x00"
	NonceSize      = 32
	authContext    = "lumend-auth-v1"
)

// ReadClientNonce reads the 32-byte client nonce, with the handshake
// magic already consumed by the caller.
func ReadClientNonce(r io.Reader) ([]byte, error) {
	clientNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, clientNonce); err != nil {
		return nil, fmt.Errorf("auth: read client nonce: %w", err)
	}
	return clientNonce, nil
}

// WriteServerHandshake generates a fresh server nonce and writes
// "OK\x00" + nonce.
func WriteServerHandshake(w io.Writer) ([]byte, error) {
	if w == nil {
		return nil, fmt.Errorf("auth: write response: nil writer")
	}
	serverNonce := make([]byte, NonceSize)
	if _, err := rand.Read(serverNonce); err != nil {
		return nil, fmt.Errorf("auth: generate server nonce: %w", err)
	}
	if _, err := w.Write(append([]byte("OK\x00"), serverNonce...)); err != nil {
		return nil, fmt.Errorf("auth: write response: %w", err)
	}
	return serverNonce, nil
}

// IsAuthHandshake peeks at r to check whether the next bytes are the
// handshake magic, without consuming them.
func IsAuthHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(HandshakeMagic))
	if err != nil {
		return false, err
	}
	return string(b) == HandshakeMagic, nil
}

// HandleAuthHandshake runs either side of the mutual handshake: a client
// sends magic+nonce+HMAC(key, authContext||nonce) and waits for
// "OK\x00"+serverNonce; a server reads that, validates the HMAC in
// constant time, and replies. Both return the pair of nonces a caller
// then feeds into DeriveSessionKey.
func HandleAuthHandshake(r *bufio.Reader, w io.Writer, key []byte, isClient bool) (clientNonce, serverNonce []byte, err error) {
	if r == nil {
		return nil, nil, fmt.Errorf("auth: nil reader")
	}
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("auth: missing key")
	}

	if isClient {
		if w == nil {
			return nil, nil, fmt.Errorf("auth: nil writer")
		}
		clientNonce = make([]byte, NonceSize)
		if _, err := rand.Read(clientNonce); err != nil {
			return nil, nil, fmt.Errorf("auth: generate client nonce: %w", err)
		}

		mac := hmac.New(sha256.New, key)
		_, _ = mac.Write([]byte(authContext))
		_, _ = mac.Write(clientNonce)
		clientAuth := mac.Sum(nil)

		msg := append([]byte(HandshakeMagic), clientNonce...)
		msg = append(msg, clientAuth...)
		if _, err := w.Write(msg); err != nil {
			return nil, nil, fmt.Errorf("auth: write handshake: %w", err)
		}

		respPrefix := make([]byte, 3)
		if _, err := io.ReadFull(r, respPrefix); err != nil {
			return nil, nil, fmt.Errorf("auth: read handshake response: %w", err)
		}
		if string(respPrefix) != "OK\x00" {
			rest, _ := io.ReadAll(r)
			line := strings.TrimSuffix(string(append(respPrefix, rest...)), "\n")
			var apiErr apitypes.ApiError
			if jsonErr := json.Unmarshal([]byte(line), &apiErr); jsonErr == nil && (apiErr.Status != 0 || apiErr.Title != "") {
				return nil, nil, apiErr
			}
			return nil, nil, fmt.Errorf("auth: invalid handshake response from server: %s", line)
		}

		serverNonce = make([]byte, NonceSize)
		if _, err := io.ReadFull(r, serverNonce); err != nil {
			return nil, nil, fmt.Errorf("auth: read server nonce: %w", err)
		}
		return clientNonce, serverNonce, nil
	}

	if _, err := r.Discard(len(HandshakeMagic)); err != nil {
		return nil, nil, fmt.Errorf("auth: discard handshake magic: %w", err)
	}

	clientNonce, err = ReadClientNonce(r)
	if err != nil {
		return nil, nil, err
	}

	clientAuth := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, clientAuth); err != nil {
		return nil, nil, fmt.Errorf("auth: read client auth: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(clientNonce)
	expectedAuth := mac.Sum(nil)
	if !hmac.Equal(clientAuth, expectedAuth) {
		e := apierror.ErrUnauthorized("invalid password")
		return nil, nil, e
	}

	serverNonce, err = WriteServerHandshake(w)
	if err != nil {
		return nil, nil, err
	}
	return clientNonce, serverNonce, nil
}
