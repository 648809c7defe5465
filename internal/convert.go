package internal

import (
	"fmt"

	"github.com/sensiblebit/pkcs1doc"
)

// ConvertFormats lists the output formats accepted by ConvertDocument.
var ConvertFormats = []string{"pem", "der", "pkix", "pkix-der", "ssh"}

// ConvertDocument renders doc in the named format. binary reports whether the
// output is raw DER rather than text. comment is used by the ssh format only.
func ConvertDocument(doc *pkcs1doc.PublicKeyDocument, format, comment string) (out []byte, binary bool, err error) {
	switch format {
	case "pem":
		return []byte(doc.ToPEM()), false, nil
	case "der":
		return doc.Bytes(), true, nil
	case "pkix":
		text, err := doc.PKIXPEM()
		if err != nil {
			return nil, false, err
		}
		return []byte(text), false, nil
	case "pkix-der":
		der, err := doc.PKIX()
		if err != nil {
			return nil, false, err
		}
		return der, true, nil
	case "ssh":
		line, err := doc.SSHAuthorizedKey(comment)
		if err != nil {
			return nil, false, fmt.Errorf("converting to OpenSSH format: %w", err)
		}
		return []byte(line), false, nil
	default:
		return nil, false, fmt.Errorf("unsupported output format %q (use pem, der, pkix, pkix-der, or ssh)", format)
	}
}
