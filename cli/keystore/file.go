package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

// File format constants
const (
	// magicHeader identifies keystore files
	magicHeader = "VRDT"
	// formatVersion is the current file format version
	formatVersion = byte(0x01)
	// saltLength is the length of the Argon2id salt
	saltLength = 16
	// nonceLength is the AES-GCM nonce length
	nonceLength = 12
)

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

// MasterKeyEnv names the environment variable read by DefaultMasterKeySource.
const MasterKeyEnv = "VERDANT_MASTER_KEY"

// ErrCorrupt is returned when the keystore file cannot be decrypted.
var ErrCorrupt = errors.New("keystore file is corrupt or was written with a different master key")

// MasterKeySource supplies the secret the file encryption key is derived from.
type MasterKeySource interface {
	GetMasterKey() ([]byte, error)
}

// MasterKeyFunc adapts a function to MasterKeySource.
type MasterKeyFunc func() ([]byte, error)

// GetMasterKey calls f.
func (f MasterKeyFunc) GetMasterKey() ([]byte, error) {
	return f()
}

// StaticMasterKey returns a source yielding key.
func StaticMasterKey(key string) MasterKeySource {
	return MasterKeyFunc(func() ([]byte, error) {
		return []byte(key), nil
	})
}

// DefaultMasterKeySource uses $VERDANT_MASTER_KEY, falling back to a value
// derived from hostname and user. The fallback only protects against casual
// reading of the file.
func DefaultMasterKeySource() MasterKeySource {
	return MasterKeyFunc(func() ([]byte, error) {
		if v := os.Getenv(MasterKeyEnv); v != "" {
			return []byte(v), nil
		}
		return machineKey(), nil
	})
}

func machineKey() []byte {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(hostname + ":" + username + ":verdant-keystore"))
	return sum[:]
}

// FileKeystore implements Keystore using encrypted file storage.
// Entries are stored in a JSON map encrypted with AES-256-GCM; the key is
// derived from the master key with Argon2id and a per-write salt.
type FileKeystore struct {
	path      string
	masterKey []byte
	mu        sync.RWMutex
}

// NewFileKeystore creates a file-based keystore at path.
func NewFileKeystore(path string, source MasterKeySource) (*FileKeystore, error) {
	masterKey, err := source.GetMasterKey()
	if err != nil {
		return nil, err
	}
	if len(masterKey) == 0 {
		return nil, errors.New("master key must not be empty")
	}

	return &FileKeystore{
		path:      path,
		masterKey: masterKey,
	}, nil
}

// Path returns the keystore file path.
func (f *FileKeystore) Path() string {
	return f.path
}

// Set stores a key-value pair.
func (f *FileKeystore) Set(name, value string) error {
	return f.update(func(entries map[string]string) error {
		entries[name] = value
		return nil
	})
}

// Get retrieves a value by name.
func (f *FileKeystore) Get(name string) (string, error) {
	entries, err := f.snapshot()
	if err != nil {
		return "", err
	}
	value, ok := entries[name]
	if !ok {
		return "", &ErrKeyNotFound{Name: name}
	}
	return value, nil
}

// Delete removes a key by name.
func (f *FileKeystore) Delete(name string) error {
	return f.update(func(entries map[string]string) error {
		if _, ok := entries[name]; !ok {
			return &ErrKeyNotFound{Name: name}
		}
		delete(entries, name)
		return nil
	})
}

// List returns all stored key names, sorted.
func (f *FileKeystore) List() ([]string, error) {
	entries, err := f.snapshot()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileKeystore) snapshot() (map[string]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.read()
}

// update applies fn to the decrypted entries and writes them back.
// Nothing is written when fn fails.
func (f *FileKeystore) update(fn func(map[string]string) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	if err := fn(entries); err != nil {
		return err
	}
	return f.write(entries)
}

// read returns an empty map when the file does not exist yet.
func (f *FileKeystore) read() (map[string]string, error) {
	entries := make(map[string]string)

	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(sealed) == 0) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}

	plaintext, err := f.decrypt(sealed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return entries, nil
}

// write replaces the file through a temp file and rename so a crash never
// leaves a half-written keystore behind.
func (f *FileKeystore) write(entries map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	plaintext, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	sealed, err := f.encrypt(plaintext)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".keys-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

const headerLen = len(magicHeader) + 1 + saltLength + nonceLength

func validHeader(sealed []byte) bool {
	return len(sealed) >= headerLen &&
		string(sealed[:len(magicHeader)]) == magicHeader &&
		sealed[len(magicHeader)] == formatVersion
}

func deriveKey(masterKey, salt []byte) []byte {
	return argon2.IDKey(masterKey, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// encrypt seals plaintext with AES-256-GCM.
// Format: [magic (4)] [version (1)] [salt (16)] [nonce (12)] [ciphertext]
func (f *FileKeystore) encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := newGCM(deriveKey(f.masterKey, salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	header := make([]byte, 0, headerLen)
	header = append(header, []byte(magicHeader)...)
	header = append(header, formatVersion)
	header = append(header, salt...)
	header = append(header, nonce...)

	// The header is authenticated as additional data.
	ciphertext := gcm.Seal(nil, nonce, plaintext, header)
	return append(header, ciphertext...), nil
}

func (f *FileKeystore) decrypt(sealed []byte) ([]byte, error) {
	if !validHeader(sealed) {
		return nil, ErrCorrupt
	}

	header := sealed[:headerLen]
	salt := header[len(magicHeader)+1 : len(magicHeader)+1+saltLength]
	nonce := header[headerLen-nonceLength:]

	gcm, err := newGCM(deriveKey(f.masterKey, salt))
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed[headerLen:], header)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

var _ Keystore = (*FileKeystore)(nil)
