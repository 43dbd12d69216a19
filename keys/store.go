package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fam.dev/fam/did"
	"fam.dev/fam/principal"
)

// Scheme names accepted by Generate.
const (
	SchemeEd25519    = "ed25519"
	SchemeDilithium3 = "dilithium3"
)

// ErrNotFound reports a missing key file.
var ErrNotFound = errors.New("keys: not found")

// Store is a directory of signer files.
type Store struct {
	Directory string
}

type Entry struct {
	Name string
	DID  did.DID
}

func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "fam", "keys"), nil
}

// New returns a Store rooted at directory, or at DefaultDirectory when empty.
func New(directory string) (*Store, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &Store{Directory: directory}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Directory, name+".key")
}

func CheckName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

// Generate creates a fresh signer of the given scheme.
func Generate(scheme string) (principal.Signer, error) {
	switch scheme {
	case "", SchemeEd25519:
		return principal.GenerateEd25519(rand.Reader)
	case SchemeDilithium3:
		return principal.GenerateDilithium3(rand.Reader)
	default:
		return nil, fmt.Errorf("keys: unknown scheme %q", scheme)
	}
}

// ParseSigner decodes the hex text of an encoded signer. A leading 0x and
// surrounding whitespace are ignored.
func ParseSigner(text string) (principal.Signer, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "0x")
	data, err := hex.DecodeString(text)
	if err != nil {
		return nil, err
	}
	return principal.Decode(data)
}

// Save writes signer under name and returns the file path. An existing file
// is only replaced when overwrite is set.
func (s *Store) Save(name string, signer principal.Signer, overwrite bool) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	filePath := s.path(name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return "", err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(signer.Encode()) + "\n"); err != nil {
		return "", err
	}
	return filePath, file.Close()
}

// Load reads the signer stored under name.
func (s *Store) Load(name string) (principal.Signer, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	signer, err := ParseSigner(string(data))
	if err != nil {
		return nil, fmt.Errorf("keys: %s: %w", name, err)
	}
	return signer, nil
}

// LoadOrCreate loads name, generating and saving a signer of scheme if the
// file does not exist yet. created reports whether a new key was written.
func (s *Store) LoadOrCreate(name, scheme string) (signer principal.Signer, created bool, err error) {
	signer, err = s.Load(name)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return signer, false, err
	}
	signer, err = Generate(scheme)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.Save(name, signer, false); err != nil {
		return nil, false, err
	}
	return signer, true, nil
}

// List returns the stored keys ordered by name. Unreadable files are
// reported as errors.
func (s *Store) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".key"))
	}
	sort.Strings(names)

	result := make([]Entry, 0, len(names))
	for _, name := range names {
		signer, err := s.Load(name)
		if err != nil {
			return nil, err
		}
		result = append(result, Entry{Name: name, DID: signer.DID()})
	}
	return result, nil
}
