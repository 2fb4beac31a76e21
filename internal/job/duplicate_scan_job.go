package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/service"
)

// DuplicateScanJob warms the duplicate caches for every knowledge base off
// the request path. Per-base failures are logged and skipped so one broken
// base cannot starve the rest.
type DuplicateScanJob struct {
	kbs       *repo.KnowledgeBaseRepo
	analysis  *service.AnalysisService
	threshold float64
}

func NewDuplicateScanJob(kbs *repo.KnowledgeBaseRepo, analysis *service.AnalysisService, threshold float64) *DuplicateScanJob {
	return &DuplicateScanJob{kbs: kbs, analysis: analysis, threshold: threshold}
}

func (j *DuplicateScanJob) Name() string {
	return "duplicate_scan"
}

func (j *DuplicateScanJob) Run(ctx context.Context) error {
	if j.analysis == nil {
		return nil
	}
	all, err := j.kbs.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, kb := range all {
		report, err := j.analysis.ScanKB(ctx, kb.ID, j.threshold)
		if err != nil {
			logutil.GetLogger(ctx).Error("duplicate scan failed",
				zap.Int64("kb_id", kb.ID), zap.Error(err))
			continue
		}
		if len(report.Groups) > 0 {
			logutil.GetLogger(ctx).Info("duplicates found",
				zap.Int64("kb_id", kb.ID),
				zap.Int("groups", len(report.Groups)),
				zap.Int("redundant", report.Redundant))
		}
	}
	return nil
}
