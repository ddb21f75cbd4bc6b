package journal

// PeriodXact is a periodic transaction template: a recurring period paired
// with a template transaction whose postings generative stages clone into
// concrete occurrences. The template itself is never mutated.
type PeriodXact struct {
	Period     *Interval
	PeriodText string
	Xact       *Xact
}

// Journal holds an ordered sequence of transactions plus any periodic
// templates, together with the account tree they reference. It is produced
// by an external parser and consumed read-only by the pipeline, except for
// accounts created on behalf of synthetic postings.
type Journal struct {
	Xacts       []*Xact
	PeriodXacts []*PeriodXact

	Accounts *Account
}

// New creates an empty journal with a fresh account tree.
func New() *Journal {
	return &Journal{Accounts: NewAccountTree()}
}

// AddXact appends a transaction in document order.
func (j *Journal) AddXact(x *Xact) {
	j.Xacts = append(j.Xacts, x)
}

// AddPeriodXact registers a periodic template.
func (j *Journal) AddPeriodXact(px *PeriodXact) {
	j.PeriodXacts = append(j.PeriodXacts, px)
}

// Posts returns every posting in document order: transactions in sequence,
// postings in their in-transaction order. This is the order the pipeline
// driver feeds the chain.
func (j *Journal) Posts() []*Post {
	var posts []*Post
	for _, x := range j.Xacts {
		posts = append(posts, x.Postings...)
	}
	return posts
}
