package ingest

import "strings"

type ChunkerConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

// Chunker splits lesson text into overlapping, sentence-aligned spans.
type Chunker struct {
	config ChunkerConfig
}

func NewChunker(config ChunkerConfig) Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 800
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 50
	}

	return Chunker{
		config: config,
	}
}

func (c *Chunker) Chunk(text string) []string {
	var chunks []string

	// Collapse whitespace but keep the original casing; chunks are shown
	// to the model and cited back to users verbatim.
	text = strings.Join(strings.Fields(text), " ")

	sentences := c.splitIntoSentences(text)

	currentChunk := strings.Builder{}

	for _, sentence := range sentences {
		// If adding this sentence would exceed chunk size
		if currentChunk.Len()+len(sentence) > c.config.ChunkSize {
			// Save current chunk if it meets minimum length
			if currentChunk.Len() >= c.config.MinChunkLength {
				chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			}

			// Start new chunk with overlap
			if c.config.ChunkOverlap > 0 && currentChunk.Len() > c.config.ChunkOverlap {
				// Get the last few characters for overlap
				text := currentChunk.String()
				lastPart := text[len(text)-c.config.ChunkOverlap:]
				currentChunk.Reset()
				currentChunk.WriteString(lastPart)
			} else {
				currentChunk.Reset()
			}
		}

		currentChunk.WriteString(sentence)
		currentChunk.WriteString(" ")
	}

	// Add the last chunk if it meets minimum length
	if currentChunk.Len() >= c.config.MinChunkLength {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	return chunks
}

func (c *Chunker) splitIntoSentences(text string) []string {
	// Basic sentence splitting - can be improved with NLP libraries
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	var sentences []string

	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		// Check for sentence endings
		for _, ender := range sentenceEnders {
			if strings.HasSuffix(current.String(), ender) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
				break
			}
		}
	}

	// Add any remaining text
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}
