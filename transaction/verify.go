package transaction

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"math/big"

	"github.com/nuts-foundation/nuts-go/keystore"
)

// ecSigParams mirrors jose's jwkECPub.setParams table: each ES algorithm
// fixes a hash function and a raw r||s signature length (32, 48 or 66
// bytes per coordinate).
var ecSigParams = map[string]struct {
	newHash  func() hash.Hash
	sigLen   int
}{
	"ES256": {sha256.New, 64},
	"ES384": {sha512.New384, 96},
	"ES512": {sha512.New, 132},
}

var rsaSigParams = map[string]crypto.Hash{
	"PS256": crypto.SHA256,
	"PS384": crypto.SHA384,
	"PS512": crypto.SHA512,
}

// verify checks sig over signingInput (the "<header-b64>.<payload-b64>"
// string) for the given algorithm and key, dispatching on key family the
// same way Transaction::parse does: RSA keys only pair with PS*
// algorithms, EC keys only with ES*, anything else is a key/algorithm
// mismatch.
func verify(algorithm string, key keystore.PublicKey, signingInput string, sig []byte) error {
	switch key.Family {
	case keystore.FamilyEllipticCurve:
		return verifyEC(algorithm, key, signingInput, sig)
	case keystore.FamilyRSA:
		return verifyRSA(algorithm, key, signingInput, sig)
	default:
		return ErrUnsupportedKeyAlgorithm
	}
}

func verifyEC(algorithm string, key keystore.PublicKey, signingInput string, sig []byte) error {
	params, ok := ecSigParams[algorithm]
	if !ok {
		return ErrUnsupportedKeyAlgorithm
	}
	pub, keyAlg := key.ECKey()
	if pub == nil || keyAlg != algorithm {
		return ErrUnsupportedKeyAlgorithm
	}
	if len(sig) != params.sigLen {
		return ErrSignatureInvalid
	}

	half := params.sigLen / 2
	r := new(big.Int).SetBytes(sig[:half])
	s := new(big.Int).SetBytes(sig[half:])

	h := params.newHash()
	h.Write([]byte(signingInput))
	digest := h.Sum(nil)

	if !ecdsa.Verify(pub, digest, r, s) {
		return ErrSignatureInvalid
	}
	return nil
}

func verifyRSA(algorithm string, key keystore.PublicKey, signingInput string, sig []byte) error {
	cryptoHash, ok := rsaSigParams[algorithm]
	if !ok {
		return ErrUnsupportedKeyAlgorithm
	}
	pub := key.RSAKey()
	if pub == nil {
		return ErrUnsupportedKeyAlgorithm
	}

	h := cryptoHash.New()
	h.Write([]byte(signingInput))
	digest := h.Sum(nil)

	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: cryptoHash}
	if err := rsa.VerifyPSS(pub, cryptoHash, digest, sig, opts); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}
