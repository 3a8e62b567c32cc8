package chunker

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split("", 1500, 200)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"invalid utf8", "valid prefix \xff\xfe", 100, 10},
		{"zero size", "some text", 0, 0},
		{"negative size", "some text", -5, 0},
		{"negative overlap", "some text", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.text, tt.size, tt.overlap)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Split() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSplit_ShortTextBelowMinimumIsDropped(t *testing.T) {
	chunks, err := Split("Too short to keep.", 1500, 200)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected fragment to be discarded, got %q", chunks)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	text := strings.Repeat("word ", 100)

	chunks, err := Split(text, 1500, 200)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != strings.TrimSpace(text) {
		t.Error("single chunk should equal the trimmed input")
	}
}

func TestSplit_PrefersSentenceBoundaryPastMidpoint(t *testing.T) {
	first := strings.Repeat("a", 300) + ". "
	text := first + strings.Repeat("b", 400)

	chunks, err := Split(text, 500, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at the sentence boundary, ends with %q", chunks[0][len(chunks[0])-5:])
	}
	if got := utf8.RuneCountInString(chunks[0]); got != 301 {
		t.Errorf("first chunk length = %d, want 301", got)
	}
}

func TestSplit_IgnoresSentenceBoundaryBeforeMidpoint(t *testing.T) {
	// "A. B. " + 2000 x's: the only boundaries sit well before the 250-char mark.
	text := "A. B. " + strings.Repeat("x", 2000)

	chunks, err := Split(text, 500, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 500 {
			t.Errorf("chunk %d has %d chars, want <= 500", i, n)
		}
	}
	if utf8.RuneCountInString(chunks[0]) != 500 {
		t.Errorf("first chunk should use the full window, got %d chars", utf8.RuneCountInString(chunks[0]))
	}
}

func TestSplit_Overlap(t *testing.T) {
	text := strings.Repeat("0123456789", 30) // 300 chars, no sentence breaks

	chunks, err := Split(text, 100, 20)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		if !strings.HasPrefix(chunks[i], prev[len(prev)-20:]) {
			t.Errorf("chunk %d should start with the last 20 chars of chunk %d", i, i-1)
		}
	}
}

func TestSplit_StopsAtFinalWindow(t *testing.T) {
	// 400 chars, step 20: windows start at 0, 20, ... 300 and the one at 300
	// reaches the end. No trailing window at 320 is emitted even though its
	// 80 chars would clear the minimum, so chunk indexes end at 15.
	text := strings.Repeat("0123456789", 40)

	chunks, err := Split(text, 100, 80)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 16 {
		t.Fatalf("got %d chunks, want 16", len(chunks))
	}
	if last := chunks[len(chunks)-1]; last != text[300:] {
		t.Errorf("last chunk = %q, want the final full window", last)
	}
}

func TestSplit_Terminates(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"near-equal overlap", 5000, 1500, 1499},
		{"overlap equal to size is clamped", 3000, 1500, 1500},
		{"overlap above size is clamped", 3000, 100, 10000},
		{"no overlap", 4000, 1500, 0},
		{"defaults", 12000, DefaultSize, DefaultOverlap},
		{"size one", 200, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("x", tt.length)
			overlap := min(tt.overlap, tt.size-1)
			bound := (tt.length+(tt.size-overlap)-1)/(tt.size-overlap) + 1

			chunks, err := Split(text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(chunks) > bound {
				t.Errorf("got %d chunks, bound is %d", len(chunks), bound)
			}
		})
	}
}

func TestSplit_TerminatesWithDenseSentences(t *testing.T) {
	text := strings.Repeat("Short one. ", 2000)

	chunks, err := Split(text, 1500, 1499)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestSplit_Coverage(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 6000; i++ {
		sb.WriteString("Sentence number ")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(" talks about memory and recall. ")
	}
	text := strings.TrimSpace(sb.String())

	chunks, err := Split(text, 700, 100)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// Every chunk is a verbatim span of the input and consecutive chunks leave no gap.
	prevStart, covered := -1, 0
	for i, c := range chunks {
		from := prevStart + 1
		idx := strings.Index(text[from:], c)
		if idx < 0 {
			t.Fatalf("chunk %d is not a span of the input after chunk %d", i, i-1)
		}
		idx += from
		if idx > covered && strings.TrimSpace(text[covered:idx]) != "" {
			t.Fatalf("gap before chunk %d: %q", i, text[covered:idx])
		}
		prevStart = idx
		covered = max(covered, idx+len(c))
	}
	if tail := strings.TrimSpace(text[covered:]); utf8.RuneCountInString(tail) > MinChunkChars {
		t.Errorf("uncovered tail longer than the minimum chunk: %q", tail)
	}
}

func TestSplit_MultibyteText(t *testing.T) {
	text := strings.Repeat("Größenordnung über Äpfel. ", 200)

	chunks, err := Split(text, 300, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if utf8.RuneCountInString(c) > 300 {
			t.Errorf("chunk %d exceeds the window", i)
		}
	}
}
