// Package chunk splits document bodies into overlapping word-bounded
// pieces for knowledge feed ingestion.
package chunk

import "strings"

// Chunk splits text into overlapping chunks of roughly chunkSize characters.
//
// Splits happen only at whitespace boundaries, so a word is never cut in
// half. Each chunk after the first is seeded with a trailing suffix of the
// previous chunk whose length fits within overlap characters, so adjacent
// chunks share context. Text no longer than chunkSize is returned whole;
// empty or whitespace-only text yields no chunks.
//
// The result is computed eagerly and the function is stateless: the same
// input always yields the same chunks.
func Chunk(text string, chunkSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	words := strings.Fields(text)

	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := len(word) + 1 // +1 for the separating space

		if currentLen+wordLen > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			// Seed the next chunk with a suffix of this one: walk backward
			// accumulating words until one more would exceed the overlap budget.
			var seed []string
			seedLen := 0
			for i := len(current) - 1; i >= 0; i-- {
				w := current[i]
				if seedLen+len(w)+1 > overlap {
					break
				}
				seed = append([]string{w}, seed...)
				seedLen += len(w) + 1
			}

			current = seed
			currentLen = seedLen
		}

		current = append(current, word)
		currentLen += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
