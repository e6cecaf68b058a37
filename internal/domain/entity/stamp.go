package entity

import (
	"image/color"
	"strings"
)

// Label modes
const (
	ModeEvidence   = "evidence"
	ModeAttachment = "attachment"
)

// Target page selectors
const (
	TargetPagesFirst = "first"
	TargetPagesAll   = "all"
)

const (
	DefaultPrefix                 = "甲"
	DefaultFontSize               = 22
	DefaultOffsetX                = 60
	DefaultOffsetY                = 10
	DefaultOutputFilenameTemplate = "{text}_{original_basename}"
	DefaultDocPrefix              = "証拠説明書"
	DefaultCourt                  = "（裁判所名）"
)

// DefaultStampColor is the red used when no color has been configured.
var DefaultStampColor = [3]int{255, 0, 0}

// JobStatus is the lifecycle state of a single stamp job.
type JobStatus string

const (
	JobStatusUnset        JobStatus = "unset"
	JobStatusEdited       JobStatus = "edited"
	JobStatusProcessing   JobStatus = "processing"
	JobStatusDone         JobStatus = "done"
	JobStatusFailed       JobStatus = "failed"
	JobStatusFileMissing  JobStatus = "file-missing"
	JobStatusInvalidPDF   JobStatus = "invalid-pdf"
	JobStatusNoMainNumber JobStatus = "no-main-number"
	JobStatusSkipped      JobStatus = "skipped"
)

// IsValidationFailure reports whether the status is one of the pre-flight terminal states.
func (s JobStatus) IsValidationFailure() bool {
	switch s {
	case JobStatusFileMissing, JobStatusInvalidPDF, JobStatusNoMainNumber:
		return true
	}
	return false
}

// StampJob is one unit of work: a source PDF and the number to stamp on it.
type StampJob struct {
	SourcePath  string    `json:"source_path"`
	MainNumber  int       `json:"main_number"`
	BranchLabel string    `json:"branch_label"`
	Status      JobStatus `json:"status"`
}

// StampConfig is the user-editable stamp settings document.
// Fields are clamped by their consumers, not by the store.
type StampConfig struct {
	Mode                   string  `json:"mode"`
	Prefix                 string  `json:"prefix"`
	FontSize               int     `json:"font_size"`
	Rotation               int     `json:"rotation"`
	OffsetX                float64 `json:"offset_x"`
	OffsetY                float64 `json:"offset_y"`
	StampColor             [3]int  `json:"stamp_color_rgb"`
	TargetPages            string  `json:"target_pages"`
	OutputFilenameTemplate string  `json:"output_filename_template"`

	StartMain  int  `json:"start_main"`
	BranchAuto bool `json:"branch_auto"`

	MakeDocx     bool   `json:"make_docx"`
	MakeXLSX     bool   `json:"make_xlsx"`
	TemplatePath string `json:"tpl_path"`
	DocPrefix    string `json:"doc_prefix"`
	Court        string `json:"court"`
	CaseName     string `json:"case_name"`

	CreateBackup bool   `json:"create_backup"`
	BackupDir    string `json:"backup_dir"`
}

// DefaultStampConfig returns the factory settings.
func DefaultStampConfig() StampConfig {
	return StampConfig{
		Mode:                   ModeEvidence,
		Prefix:                 DefaultPrefix,
		FontSize:               DefaultFontSize,
		Rotation:               0,
		OffsetX:                DefaultOffsetX,
		OffsetY:                DefaultOffsetY,
		StampColor:             DefaultStampColor,
		TargetPages:            TargetPagesFirst,
		OutputFilenameTemplate: DefaultOutputFilenameTemplate,
		StartMain:              1,
		DocPrefix:              DefaultDocPrefix,
		Court:                  DefaultCourt,
	}
}

// EffectiveMode returns the label mode, treating anything unknown as evidence.
func (c StampConfig) EffectiveMode() string {
	if strings.EqualFold(strings.TrimSpace(c.Mode), ModeAttachment) {
		return ModeAttachment
	}
	return ModeEvidence
}

// EffectiveFontSize coerces the font size to a positive value.
func (c StampConfig) EffectiveFontSize() int {
	if c.FontSize <= 0 {
		return DefaultFontSize
	}
	return c.FontSize
}

// EffectiveRotation snaps rotation to one of the four right angles; anything else is 0.
func (c StampConfig) EffectiveRotation() int {
	r := c.Rotation % 360
	if r < 0 {
		r += 360
	}
	switch r {
	case 90, 180, 270:
		return r
	}
	return 0
}

// EffectiveColor clamps each channel to 0-255 and returns an opaque color.
func (c StampConfig) EffectiveColor() color.NRGBA {
	clamp := func(v int) uint8 {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	return color.NRGBA{
		R: clamp(c.StampColor[0]),
		G: clamp(c.StampColor[1]),
		B: clamp(c.StampColor[2]),
		A: 255,
	}
}

// EffectiveStartMain returns the first number used by auto numbering.
func (c StampConfig) EffectiveStartMain() int {
	if c.StartMain < 1 {
		return 1
	}
	return c.StartMain
}

func (c StampConfig) EffectiveTargetPages() string {
	if strings.TrimSpace(c.TargetPages) == "" {
		return TargetPagesFirst
	}
	return c.TargetPages
}

func (c StampConfig) EffectiveDocPrefix() string {
	if strings.TrimSpace(c.DocPrefix) == "" {
		return DefaultDocPrefix
	}
	return c.DocPrefix
}

func (c StampConfig) EffectiveCourt() string {
	if strings.TrimSpace(c.Court) == "" {
		return DefaultCourt
	}
	return c.Court
}

// StampConfigPatch is a partial update; nil fields are left untouched.
type StampConfigPatch struct {
	Mode                   *string  `json:"mode,omitempty"`
	Prefix                 *string  `json:"prefix,omitempty"`
	FontSize               *int     `json:"font_size,omitempty"`
	Rotation               *int     `json:"rotation,omitempty"`
	OffsetX                *float64 `json:"offset_x,omitempty"`
	OffsetY                *float64 `json:"offset_y,omitempty"`
	StampColor             *[3]int  `json:"stamp_color_rgb,omitempty"`
	TargetPages            *string  `json:"target_pages,omitempty"`
	OutputFilenameTemplate *string  `json:"output_filename_template,omitempty"`
	StartMain              *int     `json:"start_main,omitempty"`
	BranchAuto             *bool    `json:"branch_auto,omitempty"`
	MakeDocx               *bool    `json:"make_docx,omitempty"`
	MakeXLSX               *bool    `json:"make_xlsx,omitempty"`
	TemplatePath           *string  `json:"tpl_path,omitempty"`
	DocPrefix              *string  `json:"doc_prefix,omitempty"`
	Court                  *string  `json:"court,omitempty"`
	CaseName               *string  `json:"case_name,omitempty"`
	CreateBackup           *bool    `json:"create_backup,omitempty"`
	BackupDir              *string  `json:"backup_dir,omitempty"`
}

// Apply merges the patch into cfg.
func (p StampConfigPatch) Apply(cfg StampConfig) StampConfig {
	setString(&cfg.Mode, p.Mode)
	setString(&cfg.Prefix, p.Prefix)
	setInt(&cfg.FontSize, p.FontSize)
	setInt(&cfg.Rotation, p.Rotation)
	if p.OffsetX != nil {
		cfg.OffsetX = *p.OffsetX
	}
	if p.OffsetY != nil {
		cfg.OffsetY = *p.OffsetY
	}
	if p.StampColor != nil {
		cfg.StampColor = *p.StampColor
	}
	setString(&cfg.TargetPages, p.TargetPages)
	setString(&cfg.OutputFilenameTemplate, p.OutputFilenameTemplate)
	setInt(&cfg.StartMain, p.StartMain)
	setBool(&cfg.BranchAuto, p.BranchAuto)
	setBool(&cfg.MakeDocx, p.MakeDocx)
	setBool(&cfg.MakeXLSX, p.MakeXLSX)
	setString(&cfg.TemplatePath, p.TemplatePath)
	setString(&cfg.DocPrefix, p.DocPrefix)
	setString(&cfg.Court, p.Court)
	setString(&cfg.CaseName, p.CaseName)
	setBool(&cfg.CreateBackup, p.CreateBackup)
	setString(&cfg.BackupDir, p.BackupDir)
	return cfg
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
