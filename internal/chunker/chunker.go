package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the window length in characters.
	DefaultSize = 1500
	// DefaultOverlap is how many characters consecutive windows share.
	DefaultOverlap = 200
	// MinChunkChars is the trimmed length a chunk must exceed to be kept.
	MinChunkChars = 50
)

// ErrInvalidInput is returned for input that indicates a caller bug rather
// than an environmental condition.
var ErrInvalidInput = errors.New("invalid input")

var sentenceBreak = []rune(". ")

// Split breaks text into overlapping, sentence-aligned chunks of at most size
// characters. Overlap is clamped below size. Fragments whose trimmed length
// does not exceed MinChunkChars are dropped.
func Split(text string, size, overlap int) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidInput, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidInput, overlap)
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	length := len(runes)
	var chunks []string

	for start := 0; start < length; {
		end := min(start+size, length)

		if end < length {
			if cut := lastSentenceBreak(runes[start:end]); cut > (end-start)/2 {
				end = start + cut + 1 // keep the period
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); utf8.RuneCountInString(piece) > MinChunkChars {
			chunks = append(chunks, piece)
		}

		// Stop at the window that reaches the end. Stepping back by the
		// overlap would only repeat a suffix of it.
		if end >= length {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// SplitDefault splits text with DefaultSize and DefaultOverlap.
func SplitDefault(text string) ([]string, error) {
	return Split(text, DefaultSize, DefaultOverlap)
}

// lastSentenceBreak returns the index of the last ". " in window, or -1.
func lastSentenceBreak(window []rune) int {
	for i := len(window) - len(sentenceBreak); i >= 0; i-- {
		if window[i] == sentenceBreak[0] && window[i+1] == sentenceBreak[1] {
			return i
		}
	}
	return -1
}
