// Package seal optionally wraps a persistence.Gateway with an
// encrypting/authenticating codec, so a deployment that wants
// confidentiality of at-rest blobs can opt in without the nvram core
// ever being aware of it — confidentiality is explicitly the
// persistence layer's concern, not the core's.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/pbkdf2"

	"github.com/fingon/go-nvramd/persistence"
)

// Config selects the key material for the sealing codec.
type Config struct {
	Password, Salt string
	// Iterations defaults to 12345 if zero.
	Iterations int
}

type gateway struct {
	persistence.Gateway
	gcm cipher.AEAD
}

// Wrap returns a persistence.Gateway that transparently seals every blob
// stored through inner and opens it on load. additionalData binds each
// blob's namespace and key so ciphertext cannot be replayed across slots.
func Wrap(inner persistence.Gateway, config Config) (persistence.Gateway, error) {
	iter := config.Iterations
	if iter == 0 {
		iter = 12345
	}
	key := pbkdf2.Key([]byte(config.Password), []byte(config.Salt), iter, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("seal: new gcm: %w", err)
	}
	return &gateway{Gateway: inner, gcm: gcm}, nil
}

// seal produces [nonce][ciphertext||tag], authenticated against aad.
func (g *gateway) seal(plain, aad []byte) []byte {
	nonce := make([]byte, g.gcm.NonceSize())
	rand.Read(nonce)
	ct := g.gcm.Seal(nil, nonce, plain, aad)
	out := make([]byte, len(nonce)+len(ct))
	copy(out, nonce)
	copy(out[len(nonce):], ct)
	return out
}

func (g *gateway) open(sealed, aad []byte) ([]byte, error) {
	ns := g.gcm.NonceSize()
	if len(sealed) < ns {
		return nil, fmt.Errorf("seal: sealed blob too short")
	}
	nonce, ct := sealed[:ns], sealed[ns:]
	return g.gcm.Open(nil, nonce, ct, aad)
}

func spaceAAD(index uint32) []byte {
	aad := make([]byte, 4+len("space"))
	copy(aad, "space")
	binary.BigEndian.PutUint32(aad[len("space"):], index)
	return aad
}

var headerAAD = []byte("header")

func (g *gateway) LoadHeader() ([]byte, error) {
	blob, err := g.Gateway.LoadHeader()
	if err != nil {
		return nil, err
	}
	return g.open(blob, headerAAD)
}

func (g *gateway) StoreHeader(blob []byte) error {
	return g.Gateway.StoreHeader(g.seal(blob, headerAAD))
}

func (g *gateway) LoadSpace(index uint32) ([]byte, error) {
	blob, err := g.Gateway.LoadSpace(index)
	if err != nil {
		return nil, err
	}
	return g.open(blob, spaceAAD(index))
}

func (g *gateway) StoreSpace(index uint32, blob []byte) error {
	return g.Gateway.StoreSpace(index, g.seal(blob, spaceAAD(index)))
}
