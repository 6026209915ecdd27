package service

import "strings"

// Slugify turns a post title into a URL fragment: ASCII letters and digits
// are kept (lowercased), every other run of characters becomes one '-', and
// leading or trailing dashes are trimmed.
//
//	Slugify("Hello, World!") → "hello-world"
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
