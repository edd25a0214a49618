package smbus

import (
	"strings"

	"github.com/mbalug7/go-usb251x/pkg/hal"
)

const (
	// MaxStringLength is the capacity of a string window in characters.
	MaxStringLength = 31

	// StringWindowSize is the size of a string window in bytes.
	StringWindowSize = MaxStringLength * 2
)

// EncodeUTF16LE packs s into a zero filled string window. Only the low byte
// of each character is kept, so characters above U+00FF do not survive.
// It returns the window and the number of characters stored.
func EncodeUTF16LE(s string) ([]byte, int) {
	window := make([]byte, StringWindowSize)
	length := 0
	for _, r := range s {
		if length == MaxStringLength {
			break
		}
		window[length*2] = byte(r)
		length++
	}
	return window, length
}

// DecodeUTF16LE unpacks 2-byte little endian code units, keeping only the
// low byte of each unit.
func DecodeUTF16LE(b []byte) string {
	var sb strings.Builder
	for i := 0; i+1 < len(b); i += 2 {
		sb.WriteRune(rune(b[i]))
	}
	return sb.String()
}

func clampStringLength(length int) int {
	if length < 0 {
		return 0
	}
	if length > MaxStringLength {
		return MaxStringLength
	}
	return length
}

// ReadUTF16LEString reads length characters from the window starting at reg.
// length is clamped to MaxStringLength.
func (obj *IO) ReadUTF16LEString(reg hal.RegAddress, length int) (string, error) {
	length = clampStringLength(length)
	buf := make([]byte, length*2)
	if _, err := obj.ReadMultipleBytes(reg, buf); err != nil {
		return "", err
	}
	return DecodeUTF16LE(buf), nil
}

// WriteUTF16LEString writes the full string window at reg and returns the
// number of characters written, which is what the length register expects.
func (obj *IO) WriteUTF16LEString(reg hal.RegAddress, s string) (int, error) {
	window, length := EncodeUTF16LE(s)
	if err := obj.WriteMultipleBytes(reg, window); err != nil {
		return 0, err
	}
	return length, nil
}
