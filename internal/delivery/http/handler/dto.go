package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/label"
)

// numberField accepts 3, "3" or "３". Anything that is not a non-negative
// integer decodes to 0, which the batch reports as no-main-number.
type numberField int

func (n *numberField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, ok := label.ParseNumber(s)
		if !ok {
			v = 0
		}
		*n = numberField(v)
		return nil
	}

	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("main_number must be an integer: %w", err)
	}
	*n = numberField(v)
	return nil
}

// textField accepts a string or a bare number.
type textField string

func (t *textField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = textField(s)
		return nil
	}

	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("branch_label must be a string or integer: %w", err)
	}
	*t = textField(strconv.FormatInt(v, 10))
	return nil
}

type JobRequest struct {
	SourcePath  string      `json:"source_path"`
	MainNumber  numberField `json:"main_number"`
	BranchLabel textField   `json:"branch_label"`
	Status      string      `json:"status,omitempty"`
}

func (r JobRequest) toEntity() entity.StampJob {
	status := entity.JobStatus(r.Status)
	if status == "" {
		status = entity.JobStatusUnset
	}
	return entity.StampJob{
		SourcePath:  r.SourcePath,
		MainNumber:  int(r.MainNumber),
		BranchLabel: string(r.BranchLabel),
		Status:      status,
	}
}

func toJobs(reqs []JobRequest) []entity.StampJob {
	jobs := make([]entity.StampJob, len(reqs))
	for i, r := range reqs {
		jobs[i] = r.toEntity()
	}
	return jobs
}

type BatchRequest struct {
	OutDir string               `json:"out_dir"`
	Jobs   []JobRequest         `json:"jobs"`
	Index  *entity.IndexRequest `json:"index,omitempty"`
}

type JobsRequest struct {
	Jobs []JobRequest `json:"jobs"`
}

type LabelRequest struct {
	Mode        string      `json:"mode"`
	Prefix      string      `json:"prefix"`
	MainNumber  numberField `json:"main_number"`
	BranchLabel textField   `json:"branch_label"`
	SourcePath  string      `json:"source_path"`
}

func (r LabelRequest) toEntity() entity.LabelRequest {
	return entity.LabelRequest{
		Mode:        r.Mode,
		Prefix:      r.Prefix,
		MainNumber:  int(r.MainNumber),
		BranchLabel: string(r.BranchLabel),
		SourcePath:  r.SourcePath,
	}
}
