package hash

var (
	BytesEqual = bytesEqual
	DeriveKey  = deriveKey
)
