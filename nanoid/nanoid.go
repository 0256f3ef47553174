package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize   = 16
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func getSize(l ...int) int {
	if len(l) > 0 && l[0] > 0 {
		return l[0]
	}
	return defaultSize
}

// String generates a nanoid of optional length using the default alphabet.
func String(l ...int) string {
	return gonanoid.Must(getSize(l...))
}

// Lower generates a lowercase alphanumeric nanoid of optional length.
func Lower(l ...int) string {
	return gonanoid.MustGenerate(lowerAlphabet, getSize(l...))
}
