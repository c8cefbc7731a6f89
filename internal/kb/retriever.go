package kb

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/aviroy619/rabbitloader-chat/pkg/llm"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

// SourceFallback marks a retrieval that matched no tier.
const SourceFallback = "fallback"

// Searcher is the store surface the retriever needs.
type Searcher interface {
	SearchTier(ctx context.Context, tier string, embedding []float32, limit int) ([]Chunk, error)
}

// Tier pairs a tier name with its minimum winning similarity.
type Tier struct {
	Name      string
	Threshold float64
}

// Retrieval is the outcome of one lookup. Chunks is empty when no tier
// cleared its threshold.
type Retrieval struct {
	Source     string
	Confidence float64
	Chunks     []Chunk
}

// Retriever embeds a question once, probes all tiers concurrently, and
// awards the answer to the highest-priority tier that clears its
// threshold. A lower tier never pre-empts a qualifying higher one, no
// matter the scores.
type Retriever struct {
	embedder llm.Embedder
	store    Searcher
	tiers    []Tier
	topK     int
	logger   logging.Logger
}

func NewRetriever(embedder llm.Embedder, store Searcher, tiers []Tier, topK int, logger logging.Logger) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: embedder, store: store, tiers: tiers, topK: topK, logger: logger}
}

// DefaultTiers builds the standard three-tier ladder from configured
// thresholds.
func DefaultTiers(adminEdit, priorityQA, kbThreshold float64) []Tier {
	return []Tier{
		{Name: TierAdminEdits, Threshold: adminEdit},
		{Name: TierPriorityQA, Threshold: priorityQA},
		{Name: TierKB, Threshold: kbThreshold},
	}
}

// Retrieve never fails the turn: embedding or tier errors are logged
// and degrade to the fallback result.
func (r *Retriever) Retrieve(ctx context.Context, userMsg string) Retrieval {
	embedding, err := r.embedder.Embed(ctx, userMsg)
	if err != nil {
		r.logger.WithError(err).Error("Question embedding failed, falling back")
		return Retrieval{Source: SourceFallback}
	}

	results := make([][]Chunk, len(r.tiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range r.tiers {
		i, tier := i, tier
		g.Go(func() error {
			chunks, err := r.store.SearchTier(gctx, tier.Name, embedding, r.topK)
			if err != nil {
				// A broken tier is treated as empty so the others can
				// still answer.
				r.logger.WithError(err).WithField("tier", tier.Name).Warn("Tier search failed")
				return nil
			}
			results[i] = chunks
			return nil
		})
	}
	_ = g.Wait()

	for i, tier := range r.tiers {
		chunks := results[i]
		if len(chunks) == 0 {
			continue
		}
		if chunks[0].Similarity >= tier.Threshold {
			observeTierHit(tier.Name)
			return Retrieval{Source: tier.Name, Confidence: chunks[0].Similarity, Chunks: chunks}
		}
	}

	observeFallback()
	return Retrieval{Source: SourceFallback}
}
