package entity

// DefaultCopyMarker marks an entry as a copy in the evidence index.
const DefaultCopyMarker = "写し"

// IndexEntry is one row of the evidence index.
type IndexEntry struct {
	No      string `json:"no"`
	Caption string `json:"caption"`
	Copy    string `json:"copy"`
	Created string `json:"created"`
	Author  string `json:"author"`
	Purpose string `json:"purpose"`
	Note    string `json:"note"`
}

// IndexContext carries the header fields of the evidence index.
type IndexContext struct {
	BundleTitle   string `json:"bundle_title"`
	DocPrefix     string `json:"doc_prefix"`
	First         string `json:"first"`
	Last          string `json:"last"`
	Court         string `json:"court"`
	CaseName      string `json:"case_name"`
	SubmittedDate string `json:"submitted_date"`
}
