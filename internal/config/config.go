// Package config carries the configuration surface consumed by the
// invoicing core: schema resources, certificate/keystore settings,
// signature algorithm identifiers, and the national signature policy.
package config

import "os"

// Algorithm and policy identifiers matching the current national
// signature policy version.
const (
	DefaultSignatureAlgorithm        = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	DefaultDigestAlgorithm           = "http://www.w3.org/2001/04/xmlenc#sha256"
	DefaultCanonicalizationAlgorithm = "http://www.w3.org/2001/10/xml-exc-c14n#"

	DefaultPolicyOID         = "1.3.6.1.4.1.15021.1.2.1"
	DefaultPolicyDescription = "Politique de signature de la facture électronique"
	DefaultPolicyHash        = "1TE7JBDsItV4GT9W77arm2vpZvNVT1363gQnvps0Yqo="
	DefaultPolicyURI         = "https://www.tradenet.com.tn/politique-signature-facture.pdf"
	DefaultSignerRole        = "CEO"
)

// Schema configures XSD resources and the validation toggle.
type Schema struct {
	// UnsignedXSDPath and SignedXSDPath override the embedded schema
	// resources when non-empty.
	UnsignedXSDPath string
	SignedXSDPath   string
	// ValidationEnabled gates schema validation in the pipeline.
	ValidationEnabled bool
}

// Certificate configures the signing keystore.
type Certificate struct {
	Path         string
	Password     string
	Alias        string
	KeystoreType string
	// Required makes generation fail when no certificate is loadable;
	// when false, generation without a keystore yields unsigned output.
	Required bool
}

// Signature configures the signature algorithm identifiers.
type Signature struct {
	SignatureAlgorithm        string
	DigestAlgorithm           string
	CanonicalizationAlgorithm string
}

// Policy configures the published signature policy reference and the
// claimed signer role.
type Policy struct {
	OID         string
	Description string
	// Hash is the base64-encoded SHA-256 of the policy document.
	Hash       string
	URI        string
	SignerRole string
}

// Config is the full configuration surface of the invoicing core.
type Config struct {
	Schema      Schema
	Certificate Certificate
	Signature   Signature
	Policy      Policy
	// TrustedCAFile enables trust-chain checking during verification
	// when set; PEM file of trusted roots.
	TrustedCAFile string
}

// Default returns the configuration matching the current national
// policy version, with schema validation on and signing optional.
func Default() Config {
	return Config{
		Schema: Schema{
			ValidationEnabled: true,
		},
		Certificate: Certificate{
			KeystoreType: "PKCS12",
			Required:     false,
		},
		Signature: Signature{
			SignatureAlgorithm:        DefaultSignatureAlgorithm,
			DigestAlgorithm:           DefaultDigestAlgorithm,
			CanonicalizationAlgorithm: DefaultCanonicalizationAlgorithm,
		},
		Policy: Policy{
			OID:         DefaultPolicyOID,
			Description: DefaultPolicyDescription,
			Hash:        DefaultPolicyHash,
			URI:         DefaultPolicyURI,
			SignerRole:  DefaultSignerRole,
		},
	}
}

// FromEnv returns the default configuration with environment overrides
// applied. The CLI loads .env files before calling this.
func FromEnv() Config {
	cfg := Default()
	setString(&cfg.Schema.UnsignedXSDPath, "ELFATOORA_XSD_UNSIGNED")
	setString(&cfg.Schema.SignedXSDPath, "ELFATOORA_XSD_SIGNED")
	if v := os.Getenv("ELFATOORA_SCHEMA_VALIDATION"); v == "false" || v == "0" {
		cfg.Schema.ValidationEnabled = false
	}
	setString(&cfg.Certificate.Path, "ELFATOORA_KEYSTORE_PATH")
	setString(&cfg.Certificate.Password, "ELFATOORA_KEYSTORE_PASSWORD")
	setString(&cfg.Certificate.Alias, "ELFATOORA_KEY_ALIAS")
	if v := os.Getenv("ELFATOORA_CERT_REQUIRED"); v == "true" || v == "1" {
		cfg.Certificate.Required = true
	}
	setString(&cfg.Policy.OID, "ELFATOORA_POLICY_OID")
	setString(&cfg.Policy.Hash, "ELFATOORA_POLICY_HASH")
	setString(&cfg.Policy.URI, "ELFATOORA_POLICY_URI")
	setString(&cfg.Policy.SignerRole, "ELFATOORA_SIGNER_ROLE")
	setString(&cfg.TrustedCAFile, "ELFATOORA_TRUSTED_CA_FILE")
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
