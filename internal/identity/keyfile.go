package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/netabase/netabase/internal/errs"
)

// keyFileVersion is the on-disk format version. Bumped whenever the
// keyFile struct's shape changes in a way that isn't backward-readable.
const keyFileVersion = 1

const (
	saltSize       = 32
	encHeaderSize  = saltSize + 4 + 4 + 1 // salt | memory | iterations | parallelism
)

// EncryptionParams holds Argon2id parameters for keyfile encryption,
// mirrored from a chain wallet's Argon2id + XChaCha20-Poly1305 keystore
// scheme and reused here for a node's identity key instead of a wallet
// seed.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultEncryptionParams returns recommended Argon2id parameters.
func DefaultEncryptionParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

type keyFile struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Encrypted bool      `json:"encrypted"`
	Key       []byte    `json:"key"`
}

func deriveFileKey(password, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

// encryptRaw encrypts raw with password using Argon2id + XChaCha20-Poly1305.
// Output format: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
func encryptRaw(raw, password []byte, params EncryptionParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errs.Wrap("identity.encryptRaw", errs.KindMalformed, err)
	}
	key := deriveFileKey(password, salt, params)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errs.Wrap("identity.encryptRaw", errs.KindMalformed, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errs.Wrap("identity.encryptRaw", errs.KindMalformed, err)
	}
	ciphertext := aead.Seal(nil, nonce, raw, nil)

	out := make([]byte, 0, encHeaderSize+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	for i := range key {
		key[i] = 0
	}
	return out, nil
}

func decryptRaw(encrypted, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := encHeaderSize + nonceSize + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return nil, errs.New("identity.decryptRaw", errs.KindTruncated)
	}

	salt := encrypted[:saltSize]
	memory := binary.LittleEndian.Uint32(encrypted[saltSize:])
	iterations := binary.LittleEndian.Uint32(encrypted[saltSize+4:])
	parallelism := encrypted[saltSize+8]
	params := EncryptionParams{Memory: memory, Iterations: iterations, Parallelism: parallelism}

	nonce := encrypted[encHeaderSize : encHeaderSize+nonceSize]
	ciphertext := encrypted[encHeaderSize+nonceSize:]

	key := deriveFileKey(password, salt, params)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		for i := range key {
			key[i] = 0
		}
		return nil, errs.Wrap("identity.decryptRaw", errs.KindMalformed, err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	for i := range key {
		key[i] = 0
	}
	if err != nil {
		return nil, errs.Wrap("identity.decryptRaw", errs.KindMalformed, err)
	}
	return plaintext, nil
}

// LoadOrCreate loads a node identity from path, generating and persisting
// a fresh random one if path doesn't exist yet. A nil or empty password
// stores the raw key unencrypted, matching the zero-passphrase behavior
// of a chain node's own on-disk identity file.
func LoadOrCreate(path string, password []byte, params EncryptionParams) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return loadKeyFile(data, password)
	}
	if !os.IsNotExist(err) {
		return nil, errs.Wrap("identity.LoadOrCreate", errs.KindUnknown, err)
	}

	id, err := GenerateRandom()
	if err != nil {
		return nil, err
	}
	if err := saveKeyFile(path, id, password, params); err != nil {
		return nil, err
	}
	return id, nil
}

// Save persists id to path, optionally encrypted under password.
func Save(path string, id *Identity, password []byte, params EncryptionParams) error {
	return saveKeyFile(path, id, password, params)
}

func loadKeyFile(data, password []byte) (*Identity, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, errs.Wrap("identity.loadKeyFile", errs.KindMalformed, err)
	}
	if kf.Version != keyFileVersion {
		return nil, errs.New("identity.loadKeyFile", errs.KindUnsupportedVersion)
	}

	raw := kf.Key
	if kf.Encrypted {
		plain, err := decryptRaw(kf.Key, password)
		if err != nil {
			return nil, err
		}
		raw = plain
	}
	return FromRawKey(raw)
}

func saveKeyFile(path string, id *Identity, password []byte, params EncryptionParams) error {
	raw, err := id.Raw()
	if err != nil {
		return err
	}

	kf := keyFile{Version: keyFileVersion, CreatedAt: time.Now().UTC()}
	if len(password) > 0 {
		enc, err := encryptRaw(raw, password, params)
		if err != nil {
			return err
		}
		kf.Encrypted = true
		kf.Key = enc
	} else {
		kf.Key = raw
	}

	data, err := json.MarshalIndent(&kf, "", "  ")
	if err != nil {
		return errs.Wrap("identity.saveKeyFile", errs.KindMalformed, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errs.Wrap("identity.saveKeyFile", errs.KindUnknown, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errs.Wrap("identity.saveKeyFile", errs.KindUnknown, err)
	}
	return nil
}
