package curriculum

import (
	"errors"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

var ErrEmptyCatalog = errors.New("catalog has no topics")

const (
	minRating = 1
	maxRating = 10

	minBaseDifficulty = 0.1
	maxBaseDifficulty = 0.9
)

type Topic struct {
	Key            string  `json:"key"`
	Subject        string  `json:"subject"`
	Name           string  `json:"name"`
	Rating         int     `json:"rating"`
	BaseDifficulty float64 `json:"base_difficulty"`
}

// Graph is the immutable topic catalog plus its N×N prerequisite weight matrix.
// Row i holds the weights of the topics that topic i requires. It is safe for
// concurrent readers.
type Graph struct {
	version string
	topics  []Topic
	index   map[string]int
	prereq  *mat.Dense
}

// NormalizeRating maps an authored 1-10 rating onto [0.1, 0.9].
func NormalizeRating(rating int) float64 {
	if rating < minRating {
		rating = minRating
	}
	if rating > maxRating {
		rating = maxRating
	}
	frac := float64(rating-minRating) / float64(maxRating-minRating)
	return minBaseDifficulty + frac*(maxBaseDifficulty-minBaseDifficulty)
}

// NewGraph compiles a catalog. Duplicate topics and prerequisites that reference
// unknown topics are logged and skipped; only an empty catalog is an error.
func NewGraph(c *Catalog, log *logger.Logger) (*Graph, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "CurriculumGraph")
	if c == nil || len(c.Topics) == 0 {
		return nil, ErrEmptyCatalog
	}

	g := &Graph{version: strings.TrimSpace(c.Version), index: map[string]int{}}
	for _, e := range c.Topics {
		key := e.Key()
		if strings.TrimSpace(e.Topic) == "" {
			log.Warn("catalog entry without topic name skipped", "subject", e.Subject)
			continue
		}
		if _, dup := g.index[key]; dup {
			log.Warn("duplicate catalog topic skipped", "topic", key)
			continue
		}
		g.index[key] = len(g.topics)
		g.topics = append(g.topics, Topic{
			Key:            key,
			Subject:        strings.TrimSpace(e.Subject),
			Name:           strings.TrimSpace(e.Topic),
			Rating:         e.Difficulty,
			BaseDifficulty: NormalizeRating(e.Difficulty),
		})
	}
	if len(g.topics) == 0 {
		return nil, ErrEmptyCatalog
	}

	n := len(g.topics)
	g.prereq = mat.NewDense(n, n, nil)
	for _, p := range c.Prerequisites {
		row, ok := g.index[strings.TrimSpace(p.Topic)]
		if !ok {
			log.Warn("prerequisite declared for unknown topic dropped", "topic", p.Topic)
			continue
		}
		for _, req := range p.Requires {
			col, ok := g.index[strings.TrimSpace(req)]
			if !ok {
				log.Warn("unknown prerequisite dropped", "topic", p.Topic, "requires", req)
				continue
			}
			if col == row {
				log.Warn("self prerequisite dropped", "topic", p.Topic)
				continue
			}
			g.prereq.Set(row, col, 1)
		}
	}
	return g, nil
}

func (g *Graph) Version() string { return g.version }

func (g *Graph) Len() int { return len(g.topics) }

func (g *Graph) Topic(i int) Topic { return g.topics[i] }

func (g *Graph) Topics() []Topic {
	return append([]Topic(nil), g.topics...)
}

func (g *Graph) Keys() []string {
	out := make([]string, len(g.topics))
	for i, t := range g.topics {
		out[i] = t.Key
	}
	return out
}

// Subjects lists distinct subjects in catalog order.
func (g *Graph) Subjects() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range g.topics {
		if !seen[t.Subject] {
			seen[t.Subject] = true
			out = append(out, t.Subject)
		}
	}
	return out
}

func (g *Graph) Index(key string) (int, bool) {
	i, ok := g.index[strings.TrimSpace(key)]
	return i, ok
}

func (g *Graph) BaseDifficulty(i int) float64 { return g.topics[i].BaseDifficulty }

// PrerequisiteRow returns a copy of row i of the weight matrix.
func (g *Graph) PrerequisiteRow(i int) []float64 {
	return mat.Row(nil, i, g.prereq)
}

// Prerequisites lists the indices topic i requires (non-zero weight).
func (g *Graph) Prerequisites(i int) []int {
	var out []int
	for j, w := range g.PrerequisiteRow(i) {
		if w > 0 {
			out = append(out, j)
		}
	}
	return out
}

// Clamp forces an index into [0, Len()).
func (g *Graph) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(g.topics) {
		return len(g.topics) - 1
	}
	return i
}
