package usecase

import (
	"strconv"

	"evidence-stamp/internal/domain/entity"
)

// AssignNumbers numbers jobs in order starting at cfg.start_main. With
// branch_auto every job shares the start number and gets branches 1, 2, 3…
// Without it, existing branch labels are kept. Every job ends up "edited".
func AssignNumbers(cfg entity.StampConfig, jobs []entity.StampJob) []entity.StampJob {
	start := cfg.EffectiveStartMain()
	out := make([]entity.StampJob, len(jobs))

	for i, job := range jobs {
		if cfg.BranchAuto {
			job.MainNumber = start
			job.BranchLabel = strconv.Itoa(i + 1)
		} else {
			job.MainNumber = start + i
		}
		job.Status = entity.JobStatusEdited
		out[i] = job
	}
	return out
}
