package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/udefuse/backend/internal"
)

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateID returns a random uppercase alphanumeric string. The charset
// drops lookalike characters so codes survive being read aloud.
func GenerateID(length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		out[i] = codeCharset[n.Int64()]
	}
	return string(out)
}

func GenerateRoomCode() string {
	return GenerateID(internal.RoomCodeLength)
}

// ValidRoomCode checks the shape of a code: exactly six uppercase
// alphanumerics. Client-supplied codes may use the full A-Z0-9 range.
func ValidRoomCode(code string) bool {
	if len(code) != internal.RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
