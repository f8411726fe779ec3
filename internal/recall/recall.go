// Package recall gives agents semantic memory: turn memories are embedded
// into a per-agent Qdrant collection and the most relevant ones are surfaced
// to the pipeline instead of the plain last-N window. Everything here is
// best effort; a missing vector backend falls back to recency silently.
package recall

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/embedding"
	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/vectorstore"
)

// Service indexes agent memories and answers similarity queries.
type Service struct {
	emb    embedding.Provider
	vs     *vectorstore.Client
	topK   uint64
	logger *zap.Logger

	mu      sync.Mutex
	indexed map[string]int // agent key -> memories already indexed
}

func NewService(emb embedding.Provider, vs *vectorstore.Client, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		emb:     emb,
		vs:      vs,
		topK:    uint64(topK),
		logger:  logger,
		indexed: make(map[string]int),
	}
}

func collection(agent string) string {
	return "memories_" + psyche.Key(agent)
}

// IndexNew embeds and upserts any memories the agent gained since the last
// call. The high-water mark is in-process only; restarts re-index, which
// upserts are tolerant of content-wise but cheap enough not to matter.
func (s *Service) IndexNew(ctx context.Context, p *psyche.Psyche) error {
	key := psyche.Key(p.Name)
	s.mu.Lock()
	from := s.indexed[key]
	s.mu.Unlock()

	if from >= len(p.Memories) {
		return nil
	}
	fresh := p.Memories[from:]

	texts := make([]string, len(fresh))
	for i, m := range fresh {
		texts[i] = m.String()
	}
	vectors, err := s.emb.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed memories: %w", err)
	}
	if len(vectors) == 0 {
		return nil
	}

	coll := collection(p.Name)
	if err := s.vs.EnsureCollection(ctx, coll, uint64(s.emb.Dimension())); err != nil {
		return err
	}
	for i, vec := range vectors {
		err := s.vs.Upsert(ctx, coll, uuid.NewString(), vec, map[string]string{
			"text":     texts[i],
			"stimulus": fresh[i].Stimulus,
		})
		if err != nil {
			return fmt.Errorf("index memory: %w", err)
		}
	}

	s.mu.Lock()
	s.indexed[key] = len(p.Memories)
	s.mu.Unlock()
	return nil
}

// Search returns the texts of the agent's memories most similar to query.
func (s *Service) Search(ctx context.Context, agent, query string) ([]string, error) {
	vectors, err := s.emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	hits, err := s.vs.Search(ctx, collection(agent), vectors[0], s.topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		if t := h.Payload["text"]; t != "" {
			texts = append(texts, t)
		}
	}
	return texts, nil
}

// Component is the optional pipeline stage that runs ahead of appraisal. It
// indexes memories from previous turns and fills Turn.Recalled; on any
// backend failure the turn proceeds with the recency window.
type Component struct {
	name string
	svc  *Service
}

func NewComponent(svc *Service) *Component {
	return &Component{name: "recall", svc: svc}
}

func (c *Component) Name() string { return c.name }

func (c *Component) Process(ctx context.Context, turn *pipeline.Turn, psy *psyche.Psyche) error {
	if err := c.svc.IndexNew(ctx, psy); err != nil {
		c.svc.logger.Debug("memory indexing unavailable", zap.Error(err))
		return nil
	}
	recalled, err := c.svc.Search(ctx, psy.Name, turn.Observation)
	if err != nil {
		c.svc.logger.Debug("semantic recall unavailable", zap.Error(err))
		return nil
	}
	turn.Recalled = recalled
	return nil
}
