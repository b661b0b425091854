// Copyright (c) 2025 A Bit of Help, Inc.

// Package seal provides the optional authenticated encryption stage wrapped
// around a compressed stream.
//
// Sealing uses tink's streaming AEAD with an AES256-GCM-HKDF-4KB keyset, so a
// sealed artifact is encrypted and authenticated segment by segment and can
// be processed without holding it in memory. Keysets are stored as cleartext
// JSON; protecting the keyset file is the caller's responsibility.
package seal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/streamingaead"
	"github.com/google/tink/go/tink"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
)

// associatedData binds every sealed stream to this tool
var associatedData = []byte("pathcompress/v1")

// Sealer encrypts and decrypts streams with one keyset
type Sealer struct {
	primitive tink.StreamingAEAD
}

// GenerateKeyset creates a new streaming AEAD keyset and writes it to path as
// JSON. An existing file is never overwritten.
func GenerateKeyset(path string) error {
	handle, err := keyset.NewHandle(streamingaead.AES256GCMHKDF4KBKeyTemplate())
	if err != nil {
		return customErrors.IO("generate_keyset", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return customErrors.IO("create_keyset", path, err)
	}
	defer f.Close()

	if err := insecurecleartextkeyset.Write(handle, keyset.NewJSONWriter(f)); err != nil {
		return customErrors.IO("write_keyset", path, err)
	}
	if err := f.Close(); err != nil {
		return customErrors.IO("close_keyset", path, err)
	}
	return nil
}

// Load reads the keyset at path and returns a Sealer for it. A missing file
// is a not found error; a file that is not a usable keyset is a
// configuration error.
func Load(path string) (*Sealer, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, customErrors.NotFound("load_keyset", path, err)
		}
		return nil, customErrors.IO("load_keyset", path, err)
	}
	defer f.Close()

	handle, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(f))
	if err != nil {
		return nil, customErrors.InvalidConfig("load_keyset", fmt.Errorf("read keyset %s: %w", path, err))
	}
	return New(handle)
}

// New returns a Sealer for an existing keyset handle
func New(handle *keyset.Handle) (*Sealer, error) {
	primitive, err := streamingaead.New(handle)
	if err != nil {
		return nil, customErrors.InvalidConfig("create_sealer", fmt.Errorf("keyset is not a streaming AEAD keyset: %w", err))
	}
	return &Sealer{primitive: primitive}, nil
}

// Seal wraps w with an encrypting writer. Close must be called to write the
// final segment; it does not close w.
func (s *Sealer) Seal(w io.Writer) (io.WriteCloser, error) {
	ew, err := s.primitive.NewEncryptingWriter(w, associatedData)
	if err != nil {
		return nil, customErrors.IO("seal_stream", "", err)
	}
	return ew, nil
}

// Open wraps r with a decrypting reader. A stream that fails authentication
// surfaces as a corrupt stream error on Read; a failure of r itself stays an
// I/O error.
func (s *Sealer) Open(r io.Reader) (io.Reader, error) {
	tracked := &sourceReader{r: r}
	dr, err := s.primitive.NewDecryptingReader(tracked, associatedData)
	if err != nil {
		return nil, tracked.classify("open_sealed_stream", err)
	}
	return &openReader{r: dr, src: tracked}, nil
}

type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}

func (s *sourceReader) classify(operation string, err error) error {
	if s.err != nil {
		return customErrors.IO(operation, "", s.err)
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return customErrors.Corrupt(operation, "", err)
}

type openReader struct {
	r   io.Reader
	src *sourceReader
}

func (o *openReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	if err != nil && err != io.EOF {
		err = o.src.classify("unseal", err)
	}
	return n, err
}
