package screen

import (
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// SimilarDistance is the largest pHash Hamming distance treated as "unchanged"
// (about 95% of the 64 bits equal).
const SimilarDistance = 3

// Observation describes one frame relative to the previous one.
type Observation struct {
	Hash     uint64
	Distance int // -1 for the first frame
	Changed  bool
}

// ChangeDetector tracks perceptual hashes across consecutive frames.
type ChangeDetector struct {
	mu   sync.Mutex
	last *goimagehash.ImageHash
}

// Observe hashes img and compares it with the previously observed frame.
func (d *ChangeDetector) Observe(img image.Image) (Observation, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Observation{Distance: -1, Changed: true}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	obs := Observation{Hash: hash.GetHash(), Distance: -1, Changed: true}
	if d.last != nil {
		if dist, err := d.last.Distance(hash); err == nil {
			obs.Distance = dist
			obs.Changed = dist > SimilarDistance
		}
	}
	d.last = hash
	return obs, nil
}

