package domain

// ListingOutcome is what one configured listing page yielded.
type ListingOutcome struct {
	Site       string
	Category   string
	URL        string
	Stubs      []ArticleStub
	FetchedVia Strategy
	Err        error
}

// Failed reports whether the listing could not be retrieved or parsed.
func (o ListingOutcome) Failed() bool {
	return o.Err != nil
}
