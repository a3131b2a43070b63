package domain

// SchemaVersion is stamped on every persisted CrawlState.
const SchemaVersion = 1

// LedgerRecord remembers a post that has been cross-posted.
// ID is the map key in CrawlState.Records and is not serialized in the record body.
type LedgerRecord struct {
	ID        string  `json:"-" bson:"-"`
	Title     string  `json:"title" bson:"title"`
	URL       string  `json:"url" bson:"url"`
	CreatedAt float64 `json:"created_utc" bson:"created_utc"`
}

// CrawlState is the single persisted aggregate of the crawler.
type CrawlState struct {
	Records       map[string]LedgerRecord `json:"posts" bson:"posts"`
	Watermark     float64                 `json:"latest_timestamp" bson:"latest_timestamp"`
	SchemaVersion int                     `json:"version" bson:"version"`
}

// NewCrawlState returns the state used when no history exists.
func NewCrawlState() CrawlState {
	return CrawlState{
		Records: make(map[string]LedgerRecord),
	}
}

// RecordFor builds the ledger record of a published post.
func RecordFor(post Post) LedgerRecord {
	url := ""
	if !post.IsSelf {
		url = post.ExternalURL
	}
	return LedgerRecord{
		ID:        post.ID,
		Title:     post.Title,
		URL:       url,
		CreatedAt: post.CreatedAt,
	}
}

// Normalize fills in what a decoded state may be missing: a nil record map and the
// record IDs, which live only in the map keys.
func (s CrawlState) Normalize() CrawlState {
	records := make(map[string]LedgerRecord, len(s.Records))
	for id, rec := range s.Records {
		rec.ID = id
		records[id] = rec
	}
	s.Records = records
	return s
}

// Has reports whether a post ID has been recorded.
func (s CrawlState) Has(id string) bool {
	_, ok := s.Records[id]
	return ok
}
