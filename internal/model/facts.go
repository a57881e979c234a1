package model

// DataSource is the provenance tag carried by every facts record and category
// payload. Consumers show it to end users next to each section.
type DataSource string

const (
	DataSourceRealProfile      DataSource = "real_profile"
	DataSourceStructuredSearch DataSource = "structured_search"
	DataSourceScrapeFallback   DataSource = "scrape_fallback"
	DataSourceLiveSite         DataSource = "live_site"
	DataSourceSelfReported     DataSource = "self_reported"
	DataSourceUnavailable      DataSource = "unavailable"
)

// Available reports whether real facts backed the record.
func (d DataSource) Available() bool {
	return d != "" && d != DataSourceUnavailable
}

// SourceMeta is the provenance envelope shared by all facts records.
// Error is empty unless every provider in the chain failed.
type SourceMeta struct {
	DataSource DataSource `json:"data_source"`
	Provider   string     `json:"provider,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Identity is what every adapter needs to look a business up.
type Identity struct {
	Name       string `json:"name"`
	Website    string `json:"website"`
	Domain     string `json:"domain"`
	Location   string `json:"location"`
	Niche      string `json:"niche"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// ProfileFacts are directory-style business attributes.
type ProfileFacts struct {
	SourceMeta
	Name        string   `json:"name,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	PhotoCount  *int     `json:"photo_count,omitempty"`
	Address     string   `json:"address,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	Hours       []string `json:"hours,omitempty"`
	OpenStatus  string   `json:"open_status,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Location    *LatLng  `json:"location,omitempty"`
	MapsURL     string   `json:"maps_url,omitempty"`
}

// HasSignal reports whether a rating or review count was captured.
func (p ProfileFacts) HasSignal() bool {
	return p.Rating != nil || p.ReviewCount != nil
}

// StructuredData summarizes JSON-LD blocks found on a page.
type StructuredData struct {
	Types           []string `json:"types,omitempty"`
	BusinessName    string   `json:"business_name,omitempty"`
	BusinessAddress string   `json:"business_address,omitempty"`
	BusinessPhone   string   `json:"business_phone,omitempty"`
}

// HasType reports whether any block declared one of the given types.
func (s StructuredData) HasType(names ...string) bool {
	for _, t := range s.Types {
		for _, n := range names {
			if t == n {
				return true
			}
		}
	}
	return false
}

// SiteFacts are homepage facts from a single fetch and parse.
type SiteFacts struct {
	SourceMeta
	URL             string         `json:"url"`
	Title           string         `json:"title,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	Headings        map[string]int `json:"headings,omitempty"`
	H1Texts         []string       `json:"h1_texts,omitempty"`
	Schema          StructuredData `json:"schema"`
	Phone           string         `json:"phone,omitempty"`
	Buttons         int            `json:"buttons"`
	Forms           int            `json:"forms"`
	TelLinks        int            `json:"tel_links"`
	MailtoLinks     int            `json:"mailto_links"`
	InternalLinks   int            `json:"internal_links"`
	ExternalLinks   int            `json:"external_links"`
	Images          int            `json:"images"`
	HasViewport     bool           `json:"has_viewport"`
	HasChatWidget   bool           `json:"has_chat_widget"`
	ChatProvider    string         `json:"chat_provider,omitempty"`
}

// Fetched reports whether the homepage was retrieved and parsed.
func (s SiteFacts) Fetched() bool {
	return s.Error == "" && s.DataSource.Available()
}

// QueryRank is the outcome of one rank-tracking query.
type QueryRank struct {
	Query       string `json:"query"`
	Position    *int   `json:"position"`
	InLocalPack bool   `json:"in_local_pack"`
	Error       string `json:"error,omitempty"`
}

// RankFacts aggregates the rank-tracking queries.
type RankFacts struct {
	SourceMeta
	Queries         []QueryRank `json:"queries"`
	AveragePosition *float64    `json:"average_position"`
	InLocalPack     bool        `json:"in_local_pack"`
}

// Competitor is one business returned by a competitor search.
type Competitor struct {
	Name        string   `json:"name"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	PhotoCount  *int     `json:"photo_count,omitempty"`
	Address     string   `json:"address,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	HasHours    bool     `json:"has_hours"`
	OpenStatus  string   `json:"open_status,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// CompetitorSet is the competitor-search facts record.
type CompetitorSet struct {
	SourceMeta
	Query       string       `json:"query"`
	Competitors []Competitor `json:"competitors"`
}

// AnswerFacts record how an AI answer engine responds to a local-intent question.
type AnswerFacts struct {
	SourceMeta
	Query                string   `json:"query"`
	Mentioned            bool     `json:"mentioned"`
	DomainCited          bool     `json:"domain_cited"`
	CompetitorsMentioned []string `json:"competitors_mentioned,omitempty"`
	Excerpt              string   `json:"excerpt,omitempty"`
}
