// Package xades produces and verifies the XAdES signatures embedded in
// TEIF invoices: exclusive XML canonicalization, SHA-256 digests, RSA
// signatures, and a signed-properties block carrying the national
// signature policy reference and the claimed signer role.
package xades

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/tnvoice/elfatoora/internal/config"
	"github.com/tnvoice/elfatoora/internal/signature"
)

// XML namespaces and algorithm URIs.
const (
	NSXMLDSig = "http://www.w3.org/2000/09/xmldsig#"
	NSXAdES   = "http://uri.etsi.org/01903/v1.3.2#"

	AlgoRSASHA256        = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgoSHA256           = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgoExcC14N          = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgoEnveloped        = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProperties = "http://uri.etsi.org/01903#SignedProperties"
	signatureID          = "SigElFatoora"
	signedPropertiesID   = "xades-" + signatureID
	signingTimeLayout    = time.RFC3339
)

// Signer produces the signed variant of an unsigned TEIF document. The
// caller's input bytes are never mutated; Sign returns a new byte
// sequence with the signature element appended at the schema-defined
// position (last child of the TEIF root).
type Signer struct {
	key    *signature.SigningKey
	sigCfg config.Signature
	policy config.Policy
	now    func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock overrides the signing-time source, for tests.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

// NewSigner creates a signer bound to a loaded signing key. Only the
// algorithm identifiers of the current national policy are supported;
// anything else is rejected up front rather than producing a document
// nobody can verify.
func NewSigner(key *signature.SigningKey, sigCfg config.Signature, policy config.Policy, opts ...SignerOption) (*Signer, error) {
	if key == nil {
		return nil, signature.ErrCertificate("signer requires a loaded signing key", nil)
	}
	if sigCfg.SignatureAlgorithm != AlgoRSASHA256 {
		return nil, signature.NewError(signature.ErrCodeUnsupportedAlgo, "signatureAlgorithm",
			"unsupported signature algorithm "+sigCfg.SignatureAlgorithm, nil)
	}
	if sigCfg.DigestAlgorithm != AlgoSHA256 {
		return nil, signature.NewError(signature.ErrCodeUnsupportedAlgo, "digestAlgorithm",
			"unsupported digest algorithm "+sigCfg.DigestAlgorithm, nil)
	}
	if sigCfg.CanonicalizationAlgorithm != AlgoExcC14N {
		return nil, signature.NewError(signature.ErrCodeUnsupportedAlgo, "canonicalizationAlgorithm",
			"unsupported canonicalization algorithm "+sigCfg.CanonicalizationAlgorithm, nil)
	}
	s := &Signer{key: key, sigCfg: sigCfg, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign signs an unsigned TEIF document and returns the signed bytes
// plus the signing timestamp recorded in the signed properties.
func (s *Signer) Sign(unsigned []byte) ([]byte, time.Time, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(unsigned); err != nil {
		return nil, time.Time{}, signature.ErrMalformed("unsigned document is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, time.Time{}, signature.ErrMalformed("unsigned document has no root element", nil)
	}

	canon := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	// Reference digest over the document as it stood before the
	// signature was attached; verification recomputes it after
	// detaching the signature.
	docC14N, err := canon.Canonicalize(root)
	if err != nil {
		return nil, time.Time{}, signature.ErrSigningFailed("document canonicalization failed", err)
	}
	docDigest := sha256.Sum256(docC14N)

	signedAt := s.now().UTC().Truncate(time.Second)

	sig, signedInfo, propsRef, sigValue, signedProps := s.buildSignature(docDigest[:], signedAt)
	root.AddChild(sig)

	// Signed-properties digest is computed in document context so the
	// canonical form matches what a verifier sees.
	propsC14N, err := canon.Canonicalize(signedProps)
	if err != nil {
		return nil, time.Time{}, signature.ErrSigningFailed("signed-properties canonicalization failed", err)
	}
	propsDigest := sha256.Sum256(propsC14N)
	propsRef.FindElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(propsDigest[:]))

	siC14N, err := canon.Canonicalize(signedInfo)
	if err != nil {
		return nil, time.Time{}, signature.ErrSigningFailed("SignedInfo canonicalization failed", err)
	}
	siDigest := sha256.Sum256(siC14N)
	sigBytes, err := s.key.SignDigest(siDigest[:])
	if err != nil {
		return nil, time.Time{}, err
	}
	sigValue.SetText(base64.StdEncoding.EncodeToString(sigBytes))

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, time.Time{}, signature.ErrSigningFailed("failed to serialize signed document", err)
	}
	return out, signedAt, nil
}

// buildSignature assembles the ds:Signature tree. Digest and signature
// values for the signed properties and SignedInfo are filled in by the
// caller after canonicalization.
func (s *Signer) buildSignature(docDigest []byte, signedAt time.Time) (sig, signedInfo, propsRef, sigValue, signedProps *etree.Element) {
	sig = etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NSXMLDSig)
	sig.CreateAttr("xmlns:xades", NSXAdES)
	sig.CreateAttr("Id", signatureID)

	signedInfo = sig.CreateElement("ds:SignedInfo")
	// SignedInfo is canonicalized on its own, outside the namespace
	// context of its ancestors, so it must declare its own prefix.
	signedInfo.CreateAttr("xmlns:ds", NSXMLDSig)
	signedInfo.CreateElement("ds:CanonicalizationMethod").
		CreateAttr("Algorithm", s.sigCfg.CanonicalizationAlgorithm)
	signedInfo.CreateElement("ds:SignatureMethod").
		CreateAttr("Algorithm", s.sigCfg.SignatureAlgorithm)

	docRef := signedInfo.CreateElement("ds:Reference")
	docRef.CreateAttr("Id", "ref-document")
	docRef.CreateAttr("URI", "")
	transforms := docRef.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgoEnveloped)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgoExcC14N)
	docRef.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", s.sigCfg.DigestAlgorithm)
	docRef.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(docDigest))

	propsRef = signedInfo.CreateElement("ds:Reference")
	propsRef.CreateAttr("Type", TypeSignedProperties)
	propsRef.CreateAttr("URI", "#"+signedPropertiesID)
	propsRef.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", s.sigCfg.DigestAlgorithm)
	propsRef.CreateElement("ds:DigestValue")

	sigValue = sig.CreateElement("ds:SignatureValue")

	cert := s.key.Certificate()
	keyInfo := sig.CreateElement("ds:KeyInfo")
	keyInfo.CreateElement("ds:X509Data").
		CreateElement("ds:X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(cert.Raw))

	object := sig.CreateElement("ds:Object")
	qualifying := object.CreateElement("xades:QualifyingProperties")
	qualifying.CreateAttr("Target", "#"+signatureID)
	signedProps = qualifying.CreateElement("xades:SignedProperties")
	// Same as SignedInfo: the element is digested standalone and uses
	// both prefixes, so both are declared here.
	signedProps.CreateAttr("xmlns:ds", NSXMLDSig)
	signedProps.CreateAttr("xmlns:xades", NSXAdES)
	signedProps.CreateAttr("Id", signedPropertiesID)
	ssp := signedProps.CreateElement("xades:SignedSignatureProperties")

	ssp.CreateElement("xades:SigningTime").SetText(signedAt.Format(signingTimeLayout))

	certDigest := sha256.Sum256(cert.Raw)
	signingCert := ssp.CreateElement("xades:SigningCertificate").CreateElement("xades:Cert")
	cd := signingCert.CreateElement("xades:CertDigest")
	cd.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", s.sigCfg.DigestAlgorithm)
	cd.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(certDigest[:]))
	issuerSerial := signingCert.CreateElement("xades:IssuerSerial")
	issuerSerial.CreateElement("ds:X509IssuerName").SetText(cert.Issuer.String())
	issuerSerial.CreateElement("ds:X509SerialNumber").SetText(cert.SerialNumber.String())

	policyID := ssp.CreateElement("xades:SignaturePolicyIdentifier").
		CreateElement("xades:SignaturePolicyId")
	sigPolicyID := policyID.CreateElement("xades:SigPolicyId")
	sigPolicyID.CreateElement("xades:Identifier").SetText(s.policy.OID)
	sigPolicyID.CreateElement("xades:Description").SetText(s.policy.Description)
	policyHash := policyID.CreateElement("xades:SigPolicyHash")
	policyHash.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", s.sigCfg.DigestAlgorithm)
	policyHash.CreateElement("ds:DigestValue").SetText(s.policy.Hash)
	policyID.CreateElement("xades:SigPolicyQualifiers").
		CreateElement("xades:SigPolicyQualifier").
		CreateElement("xades:SPURI").
		SetText(s.policy.URI)

	ssp.CreateElement("xades:SignerRole").
		CreateElement("xades:ClaimedRoles").
		CreateElement("xades:ClaimedRole").
		SetText(s.policy.SignerRole)

	return sig, signedInfo, propsRef, sigValue, signedProps
}
