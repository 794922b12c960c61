package chunking

import (
	"fmt"
	"strings"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// Source is one piece of legislation or case text entering the corpus,
// typically a section or a judgment.
type Source struct {
	ID           string
	Jurisdiction string
	Citation     string
	SourceURL    string
	Text         string
}

// Chunker produces the parent/child chunk layout the hybrid retriever
// searches over: small children for retrieval precision, their parent for
// the context window handed to prompts.
type Chunker struct {
	parentTokens  int
	childTokens   int
	childOverlap  int
	smallDocChars int
}

func NewChunker() *Chunker {
	return &Chunker{
		parentTokens:  domain.ParentChunkTokens,
		childTokens:   domain.ChildChunkTokens,
		childOverlap:  domain.ChildChunkOverlap,
		smallDocChars: domain.SmallDocumentChars,
	}
}

// Chunk splits one source into parents and their children. Documents under
// the small-document threshold become a single parent with no children; the
// lexical index searches children only, so small documents are indexed as
// one child covering the whole text instead.
func (c *Chunker) Chunk(source Source) []domain.Chunk {
	words := strings.Fields(source.Text)
	if len(words) == 0 {
		return nil
	}

	if len(source.Text) < c.smallDocChars && len(words) <= c.parentTokens {
		parent := c.parentChunk(source, 0, words)
		child := c.childChunk(source, parent.ID, 0, words)
		return []domain.Chunk{parent, child}
	}

	var out []domain.Chunk
	for i, start := 0, 0; start < len(words); i, start = i+1, start+c.parentTokens {
		end := start + c.parentTokens
		if end > len(words) {
			end = len(words)
		}
		parentWords := words[start:end]
		parent := c.parentChunk(source, i, parentWords)
		out = append(out, parent)
		out = append(out, c.childChunks(source, parent.ID, parentWords)...)
	}
	return out
}

func (c *Chunker) childChunks(source Source, parentID string, words []string) []domain.Chunk {
	if len(words) <= c.childTokens {
		return []domain.Chunk{c.childChunk(source, parentID, 0, words)}
	}

	step := c.childTokens - c.childOverlap
	var out []domain.Chunk
	for i, start := 0, 0; start < len(words); i, start = i+1, start+step {
		end := start + c.childTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, c.childChunk(source, parentID, i, words[start:end]))
		if end == len(words) {
			break
		}
	}
	return out
}

func (c *Chunker) parentChunk(source Source, index int, words []string) domain.Chunk {
	return domain.Chunk{
		ID:           fmt.Sprintf("%s-p%d", source.ID, index),
		Jurisdiction: source.Jurisdiction,
		Citation:     source.Citation,
		SourceURL:    source.SourceURL,
		Text:         strings.Join(words, " "),
		TokenCount:   len(words),
		Kind:         domain.ChunkKindParent,
	}
}

func (c *Chunker) childChunk(source Source, parentID string, index int, words []string) domain.Chunk {
	return domain.Chunk{
		ID:           fmt.Sprintf("%s-c%d", parentID, index),
		ParentID:     parentID,
		Jurisdiction: source.Jurisdiction,
		Citation:     source.Citation,
		SourceURL:    source.SourceURL,
		Text:         strings.Join(words, " "),
		TokenCount:   len(words),
		Kind:         domain.ChunkKindChild,
	}
}
