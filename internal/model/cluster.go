package model

// Cluster is a transient grouping of similar tickets inside one analysis run.
// It is never persisted; only the DeflectionInsight derived from it is.
type Cluster struct {
	ID        int       `json:"id"`
	TicketIDs []int64   `json:"ticket_ids"` // discovery order
	Centroid  []float64 `json:"-"`
	Category  string    `json:"category"` // taken from the first member
	Keywords  []string  `json:"keywords"`
	Members   []Ticket  `json:"-"`
}

func (c *Cluster) Size() int {
	return len(c.TicketIDs)
}
