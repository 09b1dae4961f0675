package subtitle

import "sort"

// Sanitise stable-sorts scenes by their existing numbers and renumbers
// them 1..scenecount, and within each scene drops any batch left with
// zero original lines, stable-sorts the rest by number and renumbers
// them 1..batchcount. It is safe to call repeatedly (it is
// idempotent) and is invoked after every Editor scope and once after
// project decode.
func Sanitise(s *Subtitles) {
	if s == nil {
		return
	}

	sort.SliceStable(s.Scenes, func(i, j int) bool {
		return s.Scenes[i].Number < s.Scenes[j].Number
	})

	for sceneIdx, scene := range s.Scenes {
		scene.Number = sceneIdx + 1

		filtered := scene.Batches[:0:0]
		for _, batch := range scene.Batches {
			if batch.LineCount() > 0 {
				filtered = append(filtered, batch)
			}
		}
		scene.Batches = filtered

		sort.SliceStable(scene.Batches, func(i, j int) bool {
			return scene.Batches[i].Number < scene.Batches[j].Number
		})

		for batchIdx, batch := range scene.Batches {
			batch.Number = batchIdx + 1
			batch.SceneNumber = scene.Number
		}
	}
}
