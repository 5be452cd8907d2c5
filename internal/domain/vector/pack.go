// Package vector defines the binary layout used to persist embeddings.
//
// Layout: a packed sequence of IEEE-754 binary32 values, little-endian,
// 4 bytes per component, no header and no padding. Component i occupies
// bytes [4*i, 4*i+4). The component count is not part of the payload and is
// stored next to it as embedding_dim; a payload whose length is not 4*dim is
// corrupt. Text transports (JSON, SQL text columns) carry the bytes as
// standard base64 with padding.
package vector

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// BytesPerComponent is the width of one packed component.
const BytesPerComponent = 4

// Pack encodes v into the packed layout. A nil or empty vector packs to nil.
func Pack(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*BytesPerComponent)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*BytesPerComponent:], math.Float32bits(f))
	}
	return buf
}

// Unpack decodes a packed payload.
func Unpack(data []byte) ([]float32, error) {
	if len(data)%BytesPerComponent != 0 {
		return nil, fmt.Errorf("invalid packed embedding: len=%d (not multiple of %d)", len(data), BytesPerComponent)
	}
	if len(data) == 0 {
		return nil, nil
	}
	v := make([]float32, len(data)/BytesPerComponent)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*BytesPerComponent:]))
	}
	return v, nil
}

// UnpackDim decodes a payload and checks it against the stored dimension.
func UnpackDim(data []byte, dim int) ([]float32, error) {
	if len(data) != dim*BytesPerComponent {
		return nil, fmt.Errorf("invalid packed embedding: len=%d, dim=%d", len(data), dim)
	}
	return Unpack(data)
}

// EncodeBase64 packs v and wraps it in standard base64.
func EncodeBase64(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(Pack(v))
}

// DecodeBase64 reverses EncodeBase64. An empty string decodes to nil.
func DecodeBase64(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode embedding base64: %w", err)
	}
	return Unpack(data)
}
