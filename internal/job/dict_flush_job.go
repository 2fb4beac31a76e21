// Package job holds the background tasks driven by the cron scheduler.
package job

import (
	"context"

	"github.com/knolab/knolab/internal/semdict"
)

// DictFlushJob persists learned synonyms when the dictionary has unsaved
// changes. Cheap when clean, so it runs every minute.
type DictFlushJob struct {
	dict *semdict.Dictionary
}

func NewDictFlushJob(dict *semdict.Dictionary) *DictFlushJob {
	return &DictFlushJob{dict: dict}
}

func (j *DictFlushJob) Name() string {
	return "dict_flush"
}

func (j *DictFlushJob) Run(ctx context.Context) error {
	if j.dict == nil || !j.dict.Dirty() {
		return nil
	}
	return j.dict.Flush(ctx)
}
