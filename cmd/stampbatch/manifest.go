package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/label"
)

// Manifest is the YAML job list read by stampbatch.
type Manifest struct {
	OutDir string        `yaml:"out_dir"`
	Index  ManifestIndex `yaml:"index"`
	Jobs   []ManifestJob `yaml:"jobs"`
}

type ManifestIndex struct {
	Enabled       *bool  `yaml:"enabled"`
	MakeXLSX      *bool  `yaml:"make_xlsx"`
	TemplatePath  string `yaml:"template_path"`
	DocPrefix     string `yaml:"doc_prefix"`
	Court         string `yaml:"court"`
	CaseName      string `yaml:"case_name"`
	SubmittedDate string `yaml:"submitted_date"`
}

type ManifestJob struct {
	Source string         `yaml:"source"`
	Main   ManifestNumber `yaml:"main"`
	Branch string         `yaml:"branch"`
}

// ManifestNumber accepts 3, "3" or "３". Unparseable values become 0 and are
// reported as no-main-number by the batch.
type ManifestNumber int

func (n *ManifestNumber) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: main must be a scalar", value.Line)
	}
	v, ok := label.ParseNumber(value.Value)
	if !ok {
		v = 0
	}
	*n = ManifestNumber(v)
	return nil
}

// LoadManifest reads the manifest at path. Relative source, output and
// template paths are resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s lists no jobs", path)
	}

	base := filepath.Dir(path)
	m.OutDir = resolve(base, m.OutDir)
	m.Index.TemplatePath = resolve(base, m.Index.TemplatePath)
	for i := range m.Jobs {
		m.Jobs[i].Source = resolve(base, m.Jobs[i].Source)
	}
	return &m, nil
}

func resolve(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Request converts the manifest into a batch request.
func (m *Manifest) Request() *entity.BatchRequest {
	jobs := make([]entity.StampJob, len(m.Jobs))
	for i, j := range m.Jobs {
		jobs[i] = entity.StampJob{
			SourcePath:  j.Source,
			MainNumber:  int(j.Main),
			BranchLabel: j.Branch,
			Status:      entity.JobStatusUnset,
		}
	}

	return &entity.BatchRequest{
		OutDir: m.OutDir,
		Jobs:   jobs,
		Index: &entity.IndexRequest{
			Enabled:       m.Index.Enabled,
			MakeXLSX:      m.Index.MakeXLSX,
			TemplatePath:  m.Index.TemplatePath,
			DocPrefix:     m.Index.DocPrefix,
			Court:         m.Index.Court,
			CaseName:      m.Index.CaseName,
			SubmittedDate: m.Index.SubmittedDate,
		},
	}
}
