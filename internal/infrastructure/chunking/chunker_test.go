package chunking

import (
	"strings"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

func repeatWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "tenancy"
	}
	return strings.Join(words, " ")
}

func sectionSource(text string) Source {
	return Source{
		ID:           "nsw-rta-s63",
		Jurisdiction: "NSW",
		Citation:     "Residential Tenancies Act 2010 (NSW) s 63",
		SourceURL:    "https://legislation.nsw.gov.au/rta/s63",
		Text:         text,
	}
}

func TestChunkSmallDocumentIsParentOnly(t *testing.T) {
	chunks := NewChunker().Chunk(sectionSource("The landlord must provide and maintain the premises in reasonable repair."))

	if len(chunks) != 2 {
		t.Fatalf("expected parent + covering child, got %d chunks", len(chunks))
	}
	parent, child := chunks[0], chunks[1]
	if parent.Kind != domain.ChunkKindParent || child.Kind != domain.ChunkKindChild {
		t.Fatalf("kinds = %q, %q", parent.Kind, child.Kind)
	}
	if child.ParentID != parent.ID {
		t.Errorf("child parent_id = %q, want %q", child.ParentID, parent.ID)
	}
	if child.Text != parent.Text {
		t.Errorf("covering child text differs from parent")
	}
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			t.Errorf("chunk %s invalid: %v", chunk.ID, err)
		}
	}
}

func TestChunkLargeDocumentSplitsParentsAndChildren(t *testing.T) {
	chunks := NewChunker().Chunk(sectionSource(repeatWords(4500)))

	parents := 0
	children := 0
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			t.Fatalf("chunk %s invalid: %v", chunk.ID, err)
		}
		switch chunk.Kind {
		case domain.ChunkKindParent:
			parents++
			if chunk.TokenCount > domain.ParentChunkTokens {
				t.Errorf("parent %s token count = %d", chunk.ID, chunk.TokenCount)
			}
		case domain.ChunkKindChild:
			children++
			if chunk.TokenCount > domain.ChildChunkTokens {
				t.Errorf("child %s token count = %d", chunk.ID, chunk.TokenCount)
			}
		}
	}
	if parents != 3 {
		t.Errorf("parents = %d, want 3 for 4500 tokens", parents)
	}
	if children <= parents {
		t.Errorf("children = %d, expected several per parent", children)
	}
}

func TestChunkChildrenOverlap(t *testing.T) {
	words := make([]string, domain.ParentChunkTokens)
	for i := range words {
		words[i] = "w" + strings.Repeat("x", 6)
	}
	// Distinct words so overlap is observable.
	for i := range words {
		words[i] = words[i] + "-" + strings.Repeat("a", i%7)
	}
	source := sectionSource(strings.Join(words, " "))
	source.Text += " " + repeatWords(domain.ParentChunkTokens) // force the large-document path

	chunks := NewChunker().Chunk(source)

	var firstTwo []domain.Chunk
	for _, chunk := range chunks {
		if chunk.Kind == domain.ChunkKindChild {
			firstTwo = append(firstTwo, chunk)
			if len(firstTwo) == 2 {
				break
			}
		}
	}
	if len(firstTwo) != 2 {
		t.Fatalf("expected at least two children")
	}
	firstWords := strings.Fields(firstTwo[0].Text)
	secondWords := strings.Fields(firstTwo[1].Text)
	tail := firstWords[len(firstWords)-domain.ChildChunkOverlap:]
	head := secondWords[:domain.ChildChunkOverlap]
	for i := range tail {
		if tail[i] != head[i] {
			t.Fatalf("overlap mismatch at %d: %q vs %q", i, tail[i], head[i])
		}
	}
}

func TestChunkEmptyTextYieldsNothing(t *testing.T) {
	if chunks := NewChunker().Chunk(sectionSource("   ")); chunks != nil {
		t.Fatalf("expected nil, got %d chunks", len(chunks))
	}
}
