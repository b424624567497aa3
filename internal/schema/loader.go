package schema

import (
	"embed"
	"fmt"
	"os"
)

//go:embed schemas/teif_invoice.xsd schemas/teif_invoice_signed.xsd
var embedded embed.FS

const (
	embeddedUnsigned = "schemas/teif_invoice.xsd"
	embeddedSigned   = "schemas/teif_invoice_signed.xsd"
)

// Suite holds the compiled signed and unsigned schema variants.
type Suite struct {
	unsigned *Validator
	signed   *Validator
}

// Load compiles both schema variants. Paths override the embedded
// resources when non-empty; loading is local file I/O only. Any failure
// is fatal configuration, distinct from per-document violations.
func Load(unsignedPath, signedPath string) (*Suite, error) {
	unsigned, err := loadOne(unsignedPath, embeddedUnsigned)
	if err != nil {
		return nil, fmt.Errorf("schema: loading unsigned variant: %w", err)
	}
	signed, err := loadOne(signedPath, embeddedSigned)
	if err != nil {
		return nil, fmt.Errorf("schema: loading signed variant: %w", err)
	}
	return &Suite{unsigned: unsigned, signed: signed}, nil
}

// LoadEmbedded compiles the schemas shipped with the binary.
func LoadEmbedded() (*Suite, error) {
	return Load("", "")
}

func loadOne(path, embeddedName string) (*Validator, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = embedded.ReadFile(embeddedName)
	}
	if err != nil {
		return nil, err
	}
	return Compile(data)
}

// Validate checks the document against the chosen variant.
func (s *Suite) Validate(data []byte, variant Variant) ([]Violation, error) {
	switch variant {
	case Signed:
		return s.signed.Validate(data)
	default:
		return s.unsigned.Validate(data)
	}
}
