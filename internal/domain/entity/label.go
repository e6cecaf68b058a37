package entity

// LabelRequest asks for the label of one number pair. Empty mode and prefix
// fall back to the stored config.
type LabelRequest struct {
	Mode        string `json:"mode,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	MainNumber  int    `json:"main_number"`
	BranchLabel string `json:"branch_label,omitempty"`
	SourcePath  string `json:"source_path,omitempty"`
}

// LabelPreview is the label text and, when a source path was given, the
// output file name it would produce.
type LabelPreview struct {
	Text       string `json:"text"`
	OutputName string `json:"output_name,omitempty"`
}
