package batcher

import (
	"testing"
	"time"

	"github.com/mgpai22/subtrans/internal/subtitle"
)

func line(n int, startSec, endSec float64) *subtitle.Line {
	return &subtitle.Line{
		Number: n,
		Start:  time.Duration(startSec * float64(time.Second)),
		End:    time.Duration(endSec * float64(time.Second)),
		Text:   "line",
	}
}

func TestSegmentSplitsOnSceneThreshold(t *testing.T) {
	lines := []*subtitle.Line{
		line(1, 0, 1),
		line(2, 1.1, 2),
		line(3, 120, 121), // 118s gap: new scene
		line(4, 121.1, 122),
	}

	opts := Options{MinBatchSize: 1, MaxBatchSize: 100, SceneThreshold: 60 * time.Second, BatchThreshold: 4 * time.Second}
	scenes := Segment(lines, opts)

	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].LineCount() != 2 || scenes[1].LineCount() != 2 {
		t.Fatalf("unexpected line distribution: %d, %d", scenes[0].LineCount(), scenes[1].LineCount())
	}
}

func TestSegmentSplitsOnBatchThresholdAfterMinSize(t *testing.T) {
	lines := []*subtitle.Line{
		line(1, 0, 1),
		line(2, 1.1, 2),
		line(3, 2.1, 3),
		line(4, 10, 11), // 7s gap, but batch below min size (3 < 4)
		line(5, 11.1, 12),
	}

	opts := Options{MinBatchSize: 4, MaxBatchSize: 100, SceneThreshold: 60 * time.Second, BatchThreshold: 4 * time.Second}
	scenes := Segment(lines, opts)

	if len(scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(scenes))
	}
	if len(scenes[0].Batches) != 1 {
		t.Fatalf("expected batch not split before min size reached, got %d batches", len(scenes[0].Batches))
	}
}

func TestSegmentRespectsMaxBatchSize(t *testing.T) {
	var lines []*subtitle.Line
	for i := 0; i < 10; i++ {
		t := float64(i)
		lines = append(lines, line(i+1, t, t+0.5))
	}

	opts := Options{MinBatchSize: 1, MaxBatchSize: 3, SceneThreshold: 60 * time.Second, BatchThreshold: 4 * time.Second}
	scenes := Segment(lines, opts)

	for _, scene := range scenes {
		for _, batch := range scene.Batches {
			if len(batch.Originals) > 3 {
				t.Fatalf("batch exceeds MaxBatchSize: %d lines", len(batch.Originals))
			}
		}
	}
}

func TestGapVarianceZeroForSingleLineBatch(t *testing.T) {
	if v := gapVariance([]*subtitle.Line{line(1, 0, 1)}); v != 0 {
		t.Fatalf("expected zero variance, got %f", v)
	}
}
