package engine

import "math"

const (
	maxIterations        = 100
	convergenceThreshold = 1e-6
)

// initCentroids implements K-Means++ seeding: the first centroid is drawn
// uniformly from the data, each subsequent one with probability proportional
// to its squared distance from the nearest already-chosen centroid.
func initCentroids(vectors [][]float64, k int, rng *randSource) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))

	distances := make([]float64, len(vectors))
	for len(centroids) < k {
		var total float64
		for i, v := range vectors {
			best := math.MaxFloat64
			for _, c := range centroids {
				if d := squaredDistance(v, c); d < best {
					best = d
				}
			}
			distances[i] = best
			total += best
		}

		// All remaining points coincide with existing centroids; fall
		// back to a uniform draw.
		if total == 0 {
			centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))
			continue
		}

		threshold := rng.Next() * total
		var cum float64
		chosen := len(vectors) - 1
		for i, d := range distances {
			cum += d
			if cum >= threshold {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVector(vectors[chosen]))
	}
	return centroids
}

// lloyd runs the assign/recompute loop until assignments stop changing, every
// centroid moves less than the convergence threshold, or the iteration cap is
// reached. Never fails on non-convergence.
func lloyd(vectors, centroids [][]float64, rng *randSource) ([]int, [][]float64) {
	assignments := make([]int, len(vectors))
	prev := make([]int, len(vectors))
	for i := range prev {
		prev[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		for i, v := range vectors {
			assignments[i] = nearestCentroid(v, centroids)
		}

		changed := false
		for i := range assignments {
			if assignments[i] != prev[i] {
				changed = true
				break
			}
		}
		copy(prev, assignments)

		maxMove := recomputeCentroids(vectors, assignments, centroids, rng)

		if !changed || maxMove < convergenceThreshold {
			break
		}
	}
	return assignments, centroids
}

// recomputeCentroids replaces each centroid with the mean of its members and
// returns the largest centroid movement. Empty clusters are reseeded to a
// random data point.
func recomputeCentroids(vectors [][]float64, assignments []int, centroids [][]float64, rng *randSource) float64 {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for i, v := range vectors {
		c := assignments[i]
		counts[c]++
		for j, x := range v {
			sums[c][j] += x
		}
	}

	var maxMove float64
	for c := range centroids {
		if counts[c] == 0 {
			next := cloneVector(vectors[rng.Intn(len(vectors))])
			if move := math.Sqrt(squaredDistance(centroids[c], next)); move > maxMove {
				maxMove = move
			}
			centroids[c] = next
			continue
		}
		next := make([]float64, dim)
		for j := range next {
			next[j] = sums[c][j] / float64(counts[c])
		}
		if move := math.Sqrt(squaredDistance(centroids[c], next)); move > maxMove {
			maxMove = move
		}
		centroids[c] = next
	}
	return maxMove
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		if d := squaredDistance(v, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func euclideanDistance(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b))
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
