package dedup

// noise labels points that belong to no cluster.
const (
	noise     = -1
	unvisited = -2
)

// dbscan clusters unit vectors by cosine distance (1 - cos).
// A point is a core point when at least minPts points, itself included,
// lie within eps. Returned labels are cluster ids starting at 0, or noise.
func dbscan(points [][]float32, eps float64, minPts int) []int {
	n := len(points)
	labels := make([]int, n)

	for i := range labels {
		labels[i] = unvisited
	}

	neighbors := neighborhoods(points, eps)
	cluster := 0

	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		if len(neighbors[i]) < minPts {
			labels[i] = noise
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors[i]...)

		for k := 0; k < len(queue); k++ {
			j := queue[k]

			if labels[j] == noise {
				// border point
				labels[j] = cluster
			}

			if labels[j] != unvisited {
				continue
			}

			labels[j] = cluster

			if len(neighbors[j]) >= minPts {
				queue = append(queue, neighbors[j]...)
			}
		}

		cluster++
	}

	return labels
}

// neighborhoods returns, for every point, the indexes of all points within eps (itself included).
func neighborhoods(points [][]float32, eps float64) [][]int {
	n := len(points)
	out := make([][]int, n)

	for i := range out {
		out[i] = append(out[i], i)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if 1-float64(CosineSimilarity(points[i], points[j])) <= eps {
				out[i] = append(out[i], j)
				out[j] = append(out[j], i)
			}
		}
	}

	return out
}
