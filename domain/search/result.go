package search

// Result is a single similarity match.
type Result struct {
	id       string
	document string
	score    float64
}

// NewResult creates a new Result.
func NewResult(id, document string, score float64) Result {
	return Result{
		id:       id,
		document: document,
		score:    score,
	}
}

// ID returns the matched document ID.
func (r Result) ID() string { return r.id }

// Document returns the stored document text.
func (r Result) Document() string { return r.document }

// Score returns the cosine similarity to the query vector.
func (r Result) Score() float64 { return r.score }
