package renderer

import "encoding/base64"

// Result is a rendered artifact.
type Result struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Base64 encodes the artifact with the standard (RFC 4648) alphabet.
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Data)
}
