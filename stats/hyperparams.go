package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// HyperparamLog appends "episode alpha gamma epsilon total_reward" lines,
// tab separated, so that a run can be related to its settings afterwards.
type HyperparamLog struct {
	mu sync.Mutex
	f  *os.File
}

func NewHyperparamLog(path string) (*HyperparamLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create hyperparameter log directory")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open hyperparameter log")
	}
	return &HyperparamLog{f: f}, nil
}

func (h *HyperparamLog) Record(_ context.Context, rec EpisodeRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintf(h.f, "%d\t%s\t%s\t%s\t%s\n",
		rec.Episode,
		strconv.FormatFloat(rec.Alpha, 'g', -1, 64),
		strconv.FormatFloat(rec.Gamma, 'g', -1, 64),
		strconv.FormatFloat(rec.Epsilon, 'g', -1, 64),
		formatReward(rec.TotalReward))
	return errors.Wrap(err, "error writing hyperparameter log")
}

func (h *HyperparamLog) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.f.Close()
}
