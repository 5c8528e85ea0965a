package openalex

// Wire types for the slices of the OpenAlex API this service reads.
// Fields the pipeline never looks at are left out on purpose.

// Topic is a work's primary topic.
type Topic struct {
	DisplayName string `json:"display_name"`
}

// Authorship ties a work to one of its authors.
type Authorship struct {
	Author AuthorRef `json:"author"`
}

// AuthorRef is the minimal author reference embedded in authorships.
type AuthorRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Work is a single scholarly work.
type Work struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	DOI             *string      `json:"doi"`
	PublicationYear *int         `json:"publication_year"`
	PrimaryTopic    *Topic       `json:"primary_topic"`
	Authorships     []Authorship `json:"authorships"`
}

// Meta is the paging envelope OpenAlex wraps list responses in.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// WorksPage is one page of works plus its paging metadata.
type WorksPage struct {
	Works []Work `json:"results"`
	Meta  Meta   `json:"meta"`
}

// Institution is an author affiliation.
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// AuthorIDs carries the external identifiers of an author.
type AuthorIDs struct {
	ORCID *string `json:"orcid"`
}

// SummaryStats carries the citation statistics of an author.
type SummaryStats struct {
	HIndex *int `json:"h_index"`
}

// Author is a full author profile.
type Author struct {
	ID                    string        `json:"id"`
	DisplayName           string        `json:"display_name"`
	ORCID                 *string       `json:"orcid"`
	IDs                   AuthorIDs     `json:"ids"`
	WorksCount            *int          `json:"works_count"`
	CitedByCount          *int          `json:"cited_by_count"`
	SummaryStats          *SummaryStats `json:"summary_stats"`
	LastKnownInstitutions []Institution `json:"last_known_institutions"`
}

type conceptList struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}
