package types

// SearchHit is one row returned by the index search endpoint.
type SearchHit struct {
	Name    string `xml:"name" json:"name"`
	Summary string `xml:"summary" json:"summary"`
	Version string `xml:"version" json:"version"`
}

// SearchResult groups every hit for a single project.
type SearchResult struct {
	Name     string
	Summary  string
	Versions []string
}

// PackageIndex describes a package index and its well-known endpoints.
type PackageIndex struct {
	URL               string
	Netloc            string
	SimpleURL         string
	PyPIURL           string
	FileStorageDomain string
}
