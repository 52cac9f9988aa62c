package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GroupSize is the default number of episodes averaged into one point.
const GroupSize = 100

// GroupRecord summarises a run of consecutive episodes.
type GroupRecord struct {
	FirstEpisode  int     `json:"firstEpisode"`
	LastEpisode   int     `json:"lastEpisode"`
	GamesCount    int     `json:"gamesCount"`
	AverageScore  float64 `json:"averageScore"`
	MedianScore   float64 `json:"medianScore"`
	MaxScore      int     `json:"maxScore"`
	MinScore      int     `json:"minScore"`
	AverageReward float64 `json:"averageReward"`
	AverageLength float64 `json:"averageLength"`
	MaxLength     int     `json:"maxLength"`
}

// Group splits records into consecutive groups of size episodes. A trailing
// partial group is kept.
func Group(records []EpisodeRecord, size int) []GroupRecord {
	if size <= 0 {
		size = GroupSize
	}

	var groups []GroupRecord
	for i := 0; i < len(records); i += size {
		end := i + size
		if end > len(records) {
			end = len(records)
		}
		groups = append(groups, summarize(records[i:end]))
	}
	return groups
}

// Summarize collapses all records into one group.
func Summarize(records []EpisodeRecord) GroupRecord {
	if len(records) == 0 {
		return GroupRecord{}
	}
	return summarize(records)
}

func summarize(group []EpisodeRecord) GroupRecord {
	scores := make([]float64, len(group))
	rewards := make([]float64, len(group))
	lengths := make([]float64, len(group))

	g := GroupRecord{
		FirstEpisode: group[0].Episode,
		LastEpisode:  group[len(group)-1].Episode,
		GamesCount:   len(group),
		MaxScore:     group[0].Score,
		MinScore:     group[0].Score,
		MaxLength:    group[0].Length,
	}
	for i, rec := range group {
		scores[i] = float64(rec.Score)
		rewards[i] = rec.TotalReward
		lengths[i] = float64(rec.Length)
		if rec.Score > g.MaxScore {
			g.MaxScore = rec.Score
		}
		if rec.Score < g.MinScore {
			g.MinScore = rec.Score
		}
		if rec.Length > g.MaxLength {
			g.MaxLength = rec.Length
		}
	}

	g.AverageScore = stat.Mean(scores, nil)
	g.AverageReward = stat.Mean(rewards, nil)
	g.AverageLength = stat.Mean(lengths, nil)
	g.MedianScore = median(scores)
	return g
}

// median averages the two middle values of an even-sized sample.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Trend fits y = intercept + slope*x by least squares.
func Trend(xs, ys []float64) (intercept, slope float64) {
	if len(xs) < 2 {
		if len(ys) == 1 {
			return ys[0], 0
		}
		return 0, 0
	}
	return stat.LinearRegression(xs, ys, nil, false)
}
