package pkcs1doc

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHPublicKey converts the document to an ssh-rsa public key.
func (d *PublicKeyDocument) SSHPublicKey() (ssh.PublicKey, error) {
	pub, err := d.PublicKey().RSA()
	if err != nil {
		return nil, err
	}
	key, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("converting to SSH public key: %w", err)
	}
	return key, nil
}

// SSHAuthorizedKey formats the key as an authorized_keys line ending in a
// newline. An empty comment is omitted.
func (d *PublicKeyDocument) SSHAuthorizedKey(comment string) (string, error) {
	key, err := d.SSHPublicKey()
	if err != nil {
		return "", err
	}
	line := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(key)), "\n")
	if comment != "" {
		line += " " + comment
	}
	return line + "\n", nil
}

// SSHFingerprint returns the OpenSSH SHA256 fingerprint ("SHA256:...").
func (d *PublicKeyDocument) SSHFingerprint() (string, error) {
	key, err := d.SSHPublicKey()
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(key), nil
}

// FromSSHAuthorizedKey parses the first key in authorized_keys data and
// returns it with its comment. Non-RSA keys fail with ErrNotRSA.
func (c Codec) FromSSHAuthorizedKey(data []byte) (*PublicKeyDocument, string, error) {
	key, comment, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, "", fmt.Errorf("parsing authorized key: %w", err)
	}
	cryptoKey, ok := key.(ssh.CryptoPublicKey)
	if !ok {
		return nil, "", fmt.Errorf("%w: SSH key type %s", ErrNotRSA, key.Type())
	}
	pub, ok := cryptoKey.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return nil, "", fmt.Errorf("%w: SSH key type %s", ErrNotRSA, key.Type())
	}
	doc, err := c.FromRSA(pub)
	if err != nil {
		return nil, "", err
	}
	return doc, comment, nil
}

// FromSSHAuthorizedKey parses an authorized_keys line with DefaultCodec.
func FromSSHAuthorizedKey(data []byte) (*PublicKeyDocument, string, error) {
	return DefaultCodec.FromSSHAuthorizedKey(data)
}
