package transaction

import "errors"

// Errors returned while parsing a compact JWS transaction, mirroring the
// ParseError enum transaction.rs raises for each malformed-input case.
var (
	ErrBadBase64               = errors.New("transaction: malformed base64 segment")
	ErrBadJSON                 = errors.New("transaction: malformed json segment")
	ErrBadHexPayload           = errors.New("transaction: payload is not 64 lower-hex characters")
	ErrUnsupportedAlgorithm    = errors.New("transaction: unsupported or missing jws algorithm")
	ErrMissingPayloadType      = errors.New("transaction: missing payload content type (cty)")
	ErrMissingKeyID            = errors.New("transaction: missing key id")
	ErrMissingKeyOrKeyID       = errors.New("transaction: header carries neither kid nor embedded jwk")
	ErrBadParentHash           = errors.New("transaction: malformed previous transaction hash")
	ErrUnknownKey              = errors.New("transaction: key id not present in key store")
	ErrSignatureInvalid        = errors.New("transaction: signature verification failed")
	ErrUnsupportedKeyAlgorithm = errors.New("transaction: key family cannot be used with the header algorithm")
)
