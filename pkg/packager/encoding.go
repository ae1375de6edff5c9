// SPDX-License-Identifier: MPL-2.0

package packager

import "encoding/base64"

// Encode returns the text-safe representation of data.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(text string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(text)
}
