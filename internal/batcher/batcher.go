// Package batcher segments a flat subtitle line sequence into scenes and
// batches, per spec.md §4.3: a gap-threshold walk followed by a balance
// pass that merges adjacent batches when doing so smooths the intra-batch
// gap pattern.
package batcher

import (
	"time"

	"github.com/mgpai22/subtrans/internal/subtitle"
)

// Options configures segmentation thresholds.
type Options struct {
	MinBatchSize    int
	MaxBatchSize    int
	SceneThreshold  time.Duration
	BatchThreshold  time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinBatchSize:   10,
		MaxBatchSize:   100,
		SceneThreshold: 60 * time.Second,
		BatchThreshold: 4 * time.Second,
	}
}

// Segment walks lines in order and produces scenes containing batches.
func Segment(lines []*subtitle.Line, opts Options) []*subtitle.Scene {
	if len(lines) == 0 {
		return nil
	}
	if opts.MinBatchSize <= 0 {
		opts.MinBatchSize = 1
	}
	if opts.MaxBatchSize < opts.MinBatchSize {
		opts.MaxBatchSize = opts.MinBatchSize
	}

	var scenes []*subtitle.Scene
	sceneNumber := 0
	batchNumber := 0

	newScene := func() *subtitle.Scene {
		sceneNumber++
		batchNumber = 0
		scene := &subtitle.Scene{Number: sceneNumber}
		scenes = append(scenes, scene)
		return scene
	}

	newBatch := func(scene *subtitle.Scene) *subtitle.Batch {
		batchNumber++
		batch := &subtitle.Batch{SceneNumber: scene.Number, Number: batchNumber}
		scene.Batches = append(scene.Batches, batch)
		return batch
	}

	scene := newScene()
	batch := newBatch(scene)

	var prevEnd time.Duration
	haveGap := false

	for _, line := range lines {
		gap := time.Duration(0)
		if haveGap {
			gap = line.Start - prevEnd
			if gap < 0 {
				gap = 0
			}
		}

		if haveGap && gap >= opts.SceneThreshold {
			scene = newScene()
			batch = newBatch(scene)
		} else if haveGap && len(batch.Originals) >= opts.MinBatchSize &&
			(gap >= opts.BatchThreshold || len(batch.Originals)+1 > opts.MaxBatchSize) {
			batch = newBatch(scene)
		} else if len(batch.Originals)+1 > opts.MaxBatchSize {
			batch = newBatch(scene)
		}

		batch.Originals = append(batch.Originals, line)
		prevEnd = line.End
		haveGap = true
	}

	for _, s := range scenes {
		balance(s, opts)
	}

	return scenes
}

// balance merges adjacent batches within a scene when the merge stays
// within MaxBatchSize and lowers the variance of intra-batch gaps
// compared to either parent, i.e. the merged batch reads more smoothly
// than the split did. Ties (equal variance) keep the existing boundary.
func balance(scene *subtitle.Scene, opts Options) {
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(scene.Batches)-1; i++ {
			a, b := scene.Batches[i], scene.Batches[i+1]
			combinedSize := len(a.Originals) + len(b.Originals)
			if combinedSize > opts.MaxBatchSize {
				continue
			}

			combined := append(append([]*subtitle.Line{}, a.Originals...), b.Originals...)
			combinedVariance := gapVariance(combined)
			if combinedVariance >= gapVariance(a.Originals) || combinedVariance >= gapVariance(b.Originals) {
				continue
			}

			a.Originals = combined
			scene.Batches = append(scene.Batches[:i+1], scene.Batches[i+2:]...)
			for j, batch := range scene.Batches {
				batch.Number = j + 1
			}
			merged = true
			break
		}
	}
}

// gapVariance computes the variance of the gaps between consecutive
// lines in a batch. A batch of 0 or 1 lines has zero variance.
func gapVariance(lines []*subtitle.Line) float64 {
	if len(lines) < 2 {
		return 0
	}

	gaps := make([]float64, 0, len(lines)-1)
	var sum float64
	for i := 1; i < len(lines); i++ {
		gap := float64(lines[i].Start - lines[i-1].End)
		if gap < 0 {
			gap = 0
		}
		gaps = append(gaps, gap)
		sum += gap
	}

	mean := sum / float64(len(gaps))
	var variance float64
	for _, g := range gaps {
		d := g - mean
		variance += d * d
	}
	return variance / float64(len(gaps))
}
