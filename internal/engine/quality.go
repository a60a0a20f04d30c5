package engine

import "math"

// silhouetteScore computes the mean silhouette over all eligible points,
// scaled by 100 and rounded. Points alone in their cluster are excluded;
// fewer than 2 clusters yields 0.
func silhouetteScore(vectors [][]float64, assignments []int, k int) float64 {
	if k < 2 {
		return 0
	}

	members := make([][]int, k)
	for i, c := range assignments {
		members[c] = append(members[c], i)
	}

	var total float64
	var counted int
	for i, v := range vectors {
		own := assignments[i]
		if len(members[own]) < 2 {
			continue
		}

		cohesion := meanDistanceTo(v, vectors, members[own], i)

		separation := math.MaxFloat64
		for c := 0; c < k; c++ {
			if c == own || len(members[c]) == 0 {
				continue
			}
			if d := meanDistanceTo(v, vectors, members[c], -1); d < separation {
				separation = d
			}
		}
		if separation == math.MaxFloat64 {
			continue
		}

		denom := math.Max(cohesion, separation)
		if denom == 0 {
			continue
		}
		total += (separation - cohesion) / denom
		counted++
	}

	if counted == 0 {
		return 0
	}
	return math.Round(total / float64(counted) * 100)
}

func meanDistanceTo(v []float64, vectors [][]float64, indexes []int, skip int) float64 {
	var sum float64
	var n int
	for _, idx := range indexes {
		if idx == skip {
			continue
		}
		sum += euclideanDistance(v, vectors[idx])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// withinClusterVariance is the mean squared distance from each point to its
// assigned centroid.
func withinClusterVariance(vectors [][]float64, assignments []int, centroids [][]float64) float64 {
	if len(vectors) == 0 {
		return 0
	}
	var sum float64
	for i, v := range vectors {
		sum += squaredDistance(v, centroids[assignments[i]])
	}
	return sum / float64(len(vectors))
}

// betweenClusterVariance is the mean squared pairwise distance among
// centroids.
func betweenClusterVariance(centroids [][]float64) float64 {
	if len(centroids) < 2 {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(centroids); i++ {
		for j := i + 1; j < len(centroids); j++ {
			sum += squaredDistance(centroids[i], centroids[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}
