package entity

import "time"

// BatchRequest describes one batch run.
type BatchRequest struct {
	OutDir string        `json:"out_dir"`
	Jobs   []StampJob    `json:"jobs"`
	Index  *IndexRequest `json:"index,omitempty"`
}

// IndexRequest overrides the index settings of the config snapshot for one batch.
type IndexRequest struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	TemplatePath  string `json:"template_path,omitempty"`
	MakeXLSX      *bool  `json:"make_xlsx,omitempty"`
	DocPrefix     string `json:"doc_prefix,omitempty"`
	Court         string `json:"court,omitempty"`
	CaseName      string `json:"case_name,omitempty"`
	SubmittedDate string `json:"submitted_date,omitempty"`
}

// ValidationIssue is one blocking problem found during the pre-flight pass.
type ValidationIssue struct {
	Index      int       `json:"index"`
	SourcePath string    `json:"source_path"`
	Status     JobStatus `json:"status"`
	Message    string    `json:"message"`
}

// ValidationReport aggregates every issue of a batch.
type ValidationReport struct {
	Total  int               `json:"total"`
	Valid  int               `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// OK reports whether no job was rejected.
func (r ValidationReport) OK() bool {
	return len(r.Issues) == 0
}

// JobResult is the outcome of one job within a batch.
type JobResult struct {
	Index      int       `json:"index"`
	SourcePath string    `json:"source_path"`
	Label      string    `json:"label,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	BackupPath string    `json:"backup_path,omitempty"`
	Pages      []int     `json:"pages,omitempty"`
	Status     JobStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// BatchResult is the tally and per-job outcome of a batch.
type BatchResult struct {
	BatchID      string           `json:"batch_id"`
	OutDir       string           `json:"out_dir"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Succeeded    int              `json:"succeeded"`
	Failed       int              `json:"failed"`
	Skipped      int              `json:"skipped"`
	Jobs         []JobResult      `json:"jobs"`
	IndexPath    string           `json:"index_path,omitempty"`
	XLSXPath     string           `json:"xlsx_path,omitempty"`
	IndexSkipped bool             `json:"index_skipped,omitempty"`
	IndexError   string           `json:"index_error,omitempty"`
	Report       ValidationReport `json:"report"`
}

// BatchRun is the persisted summary of a finished batch.
type BatchRun struct {
	ID         string    `json:"id"`
	OutDir     string    `json:"out_dir"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	IndexPath  string    `json:"index_path,omitempty"`
	IndexError string    `json:"index_error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
