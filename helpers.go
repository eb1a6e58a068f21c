package pubfront

import "strconv"

// pageNumber parses a 1-based page query value. Anything else is 1.
func pageNumber(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
