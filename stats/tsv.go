package stats

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// TSVSink appends one tab separated line per episode:
//
//	train: total_reward  length
//	eval:  score  total_reward  length
type TSVSink struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func NewTSVSink(path string) (*TSVSink, error) {
	if path == "" {
		return nil, errors.New("tsv path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create metrics directory")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open metrics log")
	}
	return &TSVSink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *TSVSink) Record(_ context.Context, rec EpisodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var line string
	if rec.Mode == Eval {
		line = fmt.Sprintf("%d\t%s\t%d\n", rec.Score, formatReward(rec.TotalReward), rec.Length)
	} else {
		line = fmt.Sprintf("%s\t%d\n", formatReward(rec.TotalReward), rec.Length)
	}
	if _, err := s.w.WriteString(line); err != nil {
		return errors.Wrap(err, "error writing metrics log")
	}
	return errors.Wrap(s.w.Flush(), "error writing metrics log")
}

func (s *TSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func formatReward(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadTSV parses a metrics log written by TSVSink. Lines with two fields are
// training episodes, lines with three are evaluation episodes. Episodes are
// numbered from 1 in file order.
func ReadTSV(r io.Reader) ([]EpisodeRecord, error) {
	var records []EpisodeRecord
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		rec := EpisodeRecord{Episode: len(records) + 1}
		var err error
		switch len(fields) {
		case 2:
			rec.Mode = Train
			rec.TotalReward, err = strconv.ParseFloat(fields[0], 64)
			if err == nil {
				rec.Length, err = strconv.Atoi(fields[1])
			}
		case 3:
			rec.Mode = Eval
			rec.Score, err = strconv.Atoi(fields[0])
			if err == nil {
				rec.TotalReward, err = strconv.ParseFloat(fields[1], 64)
			}
			if err == nil {
				rec.Length, err = strconv.Atoi(fields[2])
			}
		default:
			err = errors.Errorf("expected 2 or 3 fields, got %d", len(fields))
		}
		if err != nil {
			return nil, errors.Wrapf(err, "metrics log line %d", lineNo)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading metrics log")
	}
	return records, nil
}

// ReadTSVFile is ReadTSV on a file.
func ReadTSVFile(path string) ([]EpisodeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening metrics log")
	}
	defer f.Close()
	return ReadTSV(f)
}
