package pkcs1doc

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// fileMode is used when writing documents. Public keys are not secret.
const fileMode = 0o644

// readFile opens path, reads all of it, and closes it on every path.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}
	return data, nil
}

// writeFile creates or truncates path, writes data from w, and closes it on
// every path. A failed close is reported when the write itself succeeded.
func writeFile(path string, w io.WriterTo) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", ErrIO, path, closeErr)
		}
	}()

	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	return nil
}

// ReadDERFile loads a document from a DER file.
func (c Codec) ReadDERFile(path string) (*PublicKeyDocument, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := c.build(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// ReadPEMFile loads a document from a PEM file.
func (c Codec) ReadPEMFile(path string) (*PublicKeyDocument, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := c.FromPEM(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// ReadDERFile loads a document from a DER file with DefaultCodec.
func ReadDERFile(path string) (*PublicKeyDocument, error) {
	return DefaultCodec.ReadDERFile(path)
}

// ReadPEMFile loads a document from a PEM file with DefaultCodec.
func ReadPEMFile(path string) (*PublicKeyDocument, error) {
	return DefaultCodec.ReadPEMFile(path)
}

// WriteDERFile writes the DER encoding to path.
func (d *PublicKeyDocument) WriteDERFile(path string) error {
	return writeFile(path, d)
}

// WritePEMFile writes the PEM encoding to path.
func (d *PublicKeyDocument) WritePEMFile(path string) error {
	return writeFile(path, strings.NewReader(d.ToPEM()))
}

