package xades

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/tnvoice/elfatoora/internal/config"
	"github.com/tnvoice/elfatoora/internal/signature"
	"github.com/tnvoice/elfatoora/internal/signature/trust"
)

// Verifier checks a signed TEIF document against the embedded
// signature and, when configured, the national signature policy and a
// trust store. Verification never requires the signing key; the
// certificate travels inside the document.
type Verifier struct {
	policy config.Policy
	store  *trust.Store
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTrustStore enables certificate chain validation against the
// given store. An empty or nil store leaves chain checking off.
func WithTrustStore(store *trust.Store) VerifierOption {
	return func(v *Verifier) { v.store = store }
}

// NewVerifier creates a verifier bound to the expected signature
// policy. An empty policy hash disables the policy comparison and is
// reported as a warning on every verification.
func NewVerifier(policy config.Policy, opts ...VerifierOption) *Verifier {
	v := &Verifier{policy: policy}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the full verification sequence and reports each check
// separately. The returned result is always non-nil; the error is
// non-nil only when verification could not be carried out at all.
func (v *Verifier) Verify(data []byte) (*signature.VerificationResult, error) {
	result := signature.NewVerificationResult()

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		result.Fail(signature.FailureMalformed, "document is not well-formed XML")
		result.ComputeValidity()
		return result, signature.ErrMalformed("document is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil {
		result.Fail(signature.FailureMalformed, "document has no root element")
		result.ComputeValidity()
		return result, signature.ErrMalformed("document has no root element", nil)
	}

	sig := findLocal(root, "Signature")
	if sig == nil {
		result.Fail(signature.FailureMalformed, "no signature element found")
		result.ComputeValidity()
		return result, signature.ErrNoSignature()
	}
	result.SignatureFound = true

	cert, err := extractCertificate(sig)
	if err != nil {
		result.Fail(signature.FailureMalformed, "cannot read signing certificate: "+err.Error())
		result.ComputeValidity()
		return result, nil
	}
	result.SetSigner(cert)

	signedInfo := findLocal(sig, "SignedInfo")
	if signedInfo == nil {
		result.Fail(signature.FailureMalformed, "signature has no SignedInfo")
		result.ComputeValidity()
		return result, nil
	}
	if msg := checkAlgorithms(signedInfo); msg != "" {
		result.Fail(signature.FailureSignature, msg)
		result.ComputeValidity()
		return result, nil
	}

	canon := dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	v.checkDocumentDigest(doc, sig, signedInfo, canon, result)
	v.checkPropertiesDigest(sig, signedInfo, canon, result)
	v.checkSignatureValue(sig, signedInfo, cert, canon, result)
	v.checkPolicy(sig, result)
	v.checkChain(cert, result)

	if t := extractSigningTime(sig); t != nil {
		result.SignedAt = t
	} else {
		result.AddWarning("signed properties carry no parseable signing time")
	}

	result.ComputeValidity()
	return result, nil
}

// checkDocumentDigest recomputes the enveloped document digest on a
// copy with the signature detached and compares it to the URI=""
// reference.
func (v *Verifier) checkDocumentDigest(doc *etree.Document, sig, signedInfo *etree.Element, canon dsig.Canonicalizer, result *signature.VerificationResult) {
	expected := referenceDigest(signedInfo, func(ref *etree.Element) bool {
		return ref.SelectAttrValue("URI", "-") == ""
	})
	if expected == "" {
		result.Fail(signature.FailureMalformed, "signature has no document reference")
		return
	}

	copyDoc := doc.Copy()
	copySig := findLocal(copyDoc.Root(), "Signature")
	if copySig == nil || copySig.Parent() == nil {
		result.Fail(signature.FailureMalformed, "cannot detach signature for digest check")
		return
	}
	copySig.Parent().RemoveChild(copySig)

	c14n, err := canon.Canonicalize(copyDoc.Root())
	if err != nil {
		result.Fail(signature.FailureMalformed, "document canonicalization failed")
		return
	}
	digest := sha256.Sum256(c14n)
	if base64.StdEncoding.EncodeToString(digest[:]) != expected {
		result.Fail(signature.FailureSignature, "document digest mismatch: content was modified after signing")
		return
	}
	result.DigestValid = true
}

// checkPropertiesDigest verifies the SignedProperties reference, which
// seals the signing time and policy identifier.
func (v *Verifier) checkPropertiesDigest(sig, signedInfo *etree.Element, canon dsig.Canonicalizer, result *signature.VerificationResult) {
	expected := referenceDigest(signedInfo, func(ref *etree.Element) bool {
		return ref.SelectAttrValue("Type", "") == TypeSignedProperties ||
			strings.HasPrefix(ref.SelectAttrValue("URI", ""), "#")
	})
	if expected == "" {
		result.Fail(signature.FailureSignature, "signature has no signed-properties reference")
		return
	}
	props := findLocal(sig, "SignedProperties")
	if props == nil {
		result.Fail(signature.FailureSignature, "signed properties are missing")
		return
	}
	c14n, err := canon.Canonicalize(props)
	if err != nil {
		result.Fail(signature.FailureSignature, "signed-properties canonicalization failed")
		return
	}
	digest := sha256.Sum256(c14n)
	if base64.StdEncoding.EncodeToString(digest[:]) != expected {
		result.Fail(signature.FailureSignature, "signed-properties digest mismatch")
	}
}

// checkSignatureValue verifies the RSA signature over the canonical
// SignedInfo with the embedded certificate's public key.
func (v *Verifier) checkSignatureValue(sig, signedInfo *etree.Element, cert *x509.Certificate, canon dsig.Canonicalizer, result *signature.VerificationResult) {
	sigValue := findLocal(sig, "SignatureValue")
	if sigValue == nil {
		result.Fail(signature.FailureSignature, "signature has no SignatureValue")
		return
	}
	sigBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sigValue.Text()))
	if err != nil {
		result.Fail(signature.FailureSignature, "SignatureValue is not valid base64")
		return
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		result.Fail(signature.FailureSignature, "signing certificate does not carry an RSA key")
		return
	}
	c14n, err := canon.Canonicalize(signedInfo)
	if err != nil {
		result.Fail(signature.FailureSignature, "SignedInfo canonicalization failed")
		return
	}
	digest := sha256.Sum256(c14n)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sigBytes); err != nil {
		result.Fail(signature.FailureSignature, "signature value does not verify against the signing certificate")
		return
	}
	result.SignatureValid = true
}

// checkPolicy compares the embedded policy hash with the configured
// one. With no configured hash the check is skipped with a warning, so
// legacy documents stay verifiable during a policy rollover.
func (v *Verifier) checkPolicy(sig *etree.Element, result *signature.VerificationResult) {
	if v.policy.Hash == "" {
		result.PolicyValid = true
		result.AddWarning("policy hash comparison skipped: no expected policy configured")
		return
	}
	policyHash := findLocal(sig, "SigPolicyHash")
	if policyHash == nil {
		result.Fail(signature.FailurePolicy, "signature carries no policy identifier")
		return
	}
	embedded := ""
	if dv := findLocal(policyHash, "DigestValue"); dv != nil {
		embedded = strings.TrimSpace(dv.Text())
	}
	if embedded != v.policy.Hash {
		result.Fail(signature.FailurePolicy, "signature policy hash does not match the expected policy")
		return
	}
	result.PolicyValid = true
}

// checkChain validates the certificate chain when a non-empty trust
// store is configured.
func (v *Verifier) checkChain(cert *x509.Certificate, result *signature.VerificationResult) {
	if v.store == nil || v.store.Empty() {
		return
	}
	result.ChainChecked = true
	chain, err := v.store.VerifyChain(cert)
	if err != nil {
		result.Fail(signature.FailureSignature, "certificate chain validation failed: "+err.Error())
		return
	}
	result.ChainValid = true
	result.CertChain = chain
}

// extractCertificate pulls and parses the base64 DER certificate from
// KeyInfo/X509Data/X509Certificate.
func extractCertificate(sig *etree.Element) (*x509.Certificate, error) {
	certEl := findLocal(sig, "X509Certificate")
	if certEl == nil {
		return nil, signature.ErrCertificate("signature carries no X509Certificate", nil)
	}
	// PEM-style line wrapping inside the element is tolerated.
	text := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, certEl.Text())
	der, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, signature.ErrCertificate("embedded certificate is not valid base64", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, signature.ErrCertificate("embedded certificate cannot be parsed", err)
	}
	return cert, nil
}

// extractSigningTime reads the xades SigningTime, if present.
func extractSigningTime(sig *etree.Element) *time.Time {
	el := findLocal(sig, "SigningTime")
	if el == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(el.Text()))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// checkAlgorithms rejects SignedInfo blocks declaring algorithms other
// than the supported exc-C14N / RSA-SHA256 / SHA-256 set.
func checkAlgorithms(signedInfo *etree.Element) string {
	if el := findLocal(signedInfo, "CanonicalizationMethod"); el != nil {
		if a := el.SelectAttrValue("Algorithm", ""); a != AlgoExcC14N {
			return "unsupported canonicalization algorithm " + a
		}
	}
	if el := findLocal(signedInfo, "SignatureMethod"); el != nil {
		if a := el.SelectAttrValue("Algorithm", ""); a != AlgoRSASHA256 {
			return "unsupported signature algorithm " + a
		}
	}
	for _, el := range findAllLocal(signedInfo, "DigestMethod") {
		if a := el.SelectAttrValue("Algorithm", ""); a != AlgoSHA256 {
			return "unsupported digest algorithm " + a
		}
	}
	return ""
}

// referenceDigest returns the base64 DigestValue of the first
// ds:Reference matched by the predicate.
func referenceDigest(signedInfo *etree.Element, match func(*etree.Element) bool) string {
	for _, ref := range findAllLocal(signedInfo, "Reference") {
		if !match(ref) {
			continue
		}
		if dv := findLocal(ref, "DigestValue"); dv != nil {
			return strings.TrimSpace(dv.Text())
		}
	}
	return ""
}

// findLocal finds the first descendant (or the element itself) whose
// local name matches, ignoring namespace prefixes.
func findLocal(el *etree.Element, local string) *etree.Element {
	if el == nil {
		return nil
	}
	if localName(el.Tag) == local {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}

// findAllLocal collects all descendants with the given local name.
func findAllLocal(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	if el == nil {
		return out
	}
	if localName(el.Tag) == local {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = append(out, findAllLocal(child, local)...)
	}
	return out
}

func localName(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
