package pipeline

import (
	"strings"

	"github.com/google/uuid"

	"github.com/trandvq/docsense/types"
)

const (
	DefaultMaxChunkSize = 2000
	DefaultChunkOverlap = 100
)

// SplitSections chunks content into bounded-size sections, preferring
// paragraph and sentence boundaries over hard cuts. Order reflects position
// in the source and is preserved for tie-breaks and contiguous context.
func SplitSections(docID, content string, maxSize, overlap int) []types.TextSection {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}

	clean := strings.ReplaceAll(content, "\r\n", "\n")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}

	var pieces []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			pieces = append(pieces, strings.Join(current, "\n\n"))
			current = current[:0]
			currentLen = 0
		}
	}

	for _, paragraph := range strings.Split(clean, "\n\n") {
		p := strings.TrimSpace(paragraph)
		if p == "" {
			continue
		}

		if len(p) > maxSize {
			// Oversized paragraph: flush what we have, then split the
			// paragraph itself at sentence (or word) boundaries.
			flush()
			pieces = append(pieces, splitLongText(p, maxSize, overlap)...)
			continue
		}

		if currentLen+len(p) > maxSize {
			flush()
		}
		current = append(current, p)
		currentLen += len(p)
	}
	flush()

	sections := make([]types.TextSection, len(pieces))
	for i, piece := range pieces {
		sections[i] = types.TextSection{
			ID:         uuid.New().String(),
			DocumentID: docID,
			Content:    piece,
			Order:      i,
		}
	}
	return sections
}

// splitLongText cuts text into maxSize windows, scanning backwards for a
// sentence end and falling back to a word boundary before a hard cut.
func splitLongText(text string, maxSize, overlap int) []string {
	var chunks []string
	textLen := len(text)
	currentPos := 0

	for currentPos < textLen {
		chunkEnd := currentPos + maxSize
		if chunkEnd >= textLen {
			if chunk := strings.TrimSpace(text[currentPos:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		sentenceEnd := chunkEnd
		for i := chunkEnd - 1; i > currentPos; i-- {
			if text[i] == '.' || text[i] == '?' || text[i] == '!' {
				sentenceEnd = i + 1
				break
			}
		}
		if sentenceEnd == chunkEnd {
			for i := chunkEnd - 1; i > currentPos; i-- {
				if text[i] == ' ' {
					sentenceEnd = i
					break
				}
			}
		}

		if chunk := strings.TrimSpace(text[currentPos:sentenceEnd]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := sentenceEnd - overlap
		if next <= currentPos {
			next = sentenceEnd
		}
		currentPos = next
	}

	return chunks
}
