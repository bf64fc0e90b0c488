// Package cluster groups tickets by embedding similarity with a single greedy
// pass. The result depends on input order: each ticket joins the first
// existing cluster whose centroid is within the threshold, and clusters are
// never merged afterwards.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"deflect.app/relay/common"
	"deflect.app/relay/internal/model"
)

// DefaultThreshold is the cosine similarity a ticket needs to join a cluster.
const DefaultThreshold = 0.85

// ErrInvalidInput fails a whole clustering run: a missing embedding or mixed
// dimensionality would corrupt centroid math.
var ErrInvalidInput = errors.New("invalid clustering input")

// Embedder turns ticket text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Cluster assigns tickets, in input order, to the first cluster whose
// centroid has cosine similarity >= threshold, opening a new cluster
// otherwise. Cluster ids are their discovery index.
func Cluster(tickets []model.Ticket, threshold float64) ([]model.Cluster, error) {
	if err := validate(tickets); err != nil {
		return nil, err
	}

	clusters := make([]model.Cluster, 0)
	for _, t := range tickets {
		idx := -1
		for i := range clusters {
			if CosineSimilarity(t.Embedding, clusters[i].Centroid) >= threshold {
				idx = i
				break
			}
		}

		if idx < 0 {
			clusters = append(clusters, model.Cluster{
				ID:        len(clusters),
				TicketIDs: []int64{t.ID},
				Centroid:  NewCentroid(nil, t.Embedding, 1),
				Category:  common.NormalizeCategory(t.CategoryValue()),
				Members:   []model.Ticket{t},
			})
			continue
		}

		c := &clusters[idx]
		c.TicketIDs = append(c.TicketIDs, t.ID)
		c.Members = append(c.Members, t)
		c.Centroid = NewCentroid(c.Centroid, t.Embedding, len(c.TicketIDs))
	}

	for i := range clusters {
		clusters[i].Keywords = Keywords(clusters[i].Members, MaxKeywords)
	}
	return clusters, nil
}

func validate(tickets []model.Ticket) error {
	dims := -1
	for _, t := range tickets {
		if len(t.Embedding) == 0 {
			return fmt.Errorf("%w: ticket %d has no embedding", ErrInvalidInput, t.ID)
		}
		if dims < 0 {
			dims = len(t.Embedding)
			continue
		}
		if len(t.Embedding) != dims {
			return fmt.Errorf("%w: ticket %d has %d dimensions, expected %d", ErrInvalidInput, t.ID, len(t.Embedding), dims)
		}
	}
	return nil
}
