package identity

import (
	"crypto/rand"
	"io"
	"strings"
	"unicode"
)

const (
	digits    = "0123456789"
	lowers    = "abcdefghijklmnopqrstuvwxyz"
	uppers    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	specials  = "!\"#$%&'()*+,-./"
	printable = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"
)

// GeneratePassword produces a random password meeting the configured policy.
// After the random walk, the buffer is re-scanned for each required character
// class and one character per still-missing class is appended, so compliance
// holds no matter what the walk produced.
func (m *Manager) GeneratePassword() string {
	length := m.policy.RequiredLength
	if length < 1 {
		length = 1
	}

	var b strings.Builder
	for b.Len() < length {
		b.WriteByte(randFrom(printable))
	}

	password := b.String()
	hasDigit, hasLower, hasUpper, hasSpecial := scanClasses(password)

	if m.policy.RequireNonAlphanumeric && !hasSpecial {
		password += string(randFrom(specials))
	}
	if m.policy.RequireDigit && !hasDigit {
		password += string(randFrom(digits))
	}
	if m.policy.RequireUppercase && !hasUpper {
		password += string(randFrom(uppers))
	}
	if m.policy.RequireLowercase && !hasLower {
		password += string(randFrom(lowers))
	}
	return password
}

func scanClasses(s string) (hasDigit, hasLower, hasUpper, hasSpecial bool) {
	for _, c := range s {
		switch {
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsUpper(c):
			hasUpper = true
		default:
			hasSpecial = true
		}
	}
	return
}

func randFrom(set string) byte {
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			panic(err)
		}
		// rejection sampling keeps the distribution uniform
		if int(buf[0]) < 256-(256%len(set)) {
			return set[int(buf[0])%len(set)]
		}
	}
}
