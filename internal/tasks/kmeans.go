package tasks

import (
	"fmt"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// trackObservation is one feature vector, implementing clusters.Observation.
type trackObservation struct {
	index  int
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// KMeansClusterer is the default [Clusterer]: Lloyd's k-means with random initial centers and
// Euclidean distance.
type KMeansClusterer struct {
	deltaThreshold float64
}

func NewKMeansClusterer() *KMeansClusterer {
	return &KMeansClusterer{deltaThreshold: 0.01}
}

// Cluster runs k-means and assigns every vector to its nearest final center.
func (c *KMeansClusterer) Cluster(vectors [][]float64, k int) ([]int, error) {
	if k <= 0 || len(vectors) < k {
		return nil, fmt.Errorf("cannot form %d clusters from %d vectors", k, len(vectors))
	}

	obs := make(clusters.Observations, len(vectors))
	for i, v := range vectors {
		obs[i] = trackObservation{index: i, coords: clusters.Coordinates(v)}
	}

	km, err := kmeans.NewWithOptions(c.deltaThreshold, nil)
	if err != nil {
		return nil, err
	}
	result, err := km.Partition(obs, k)
	if err != nil {
		return nil, err
	}

	// Partition can leave a reseeded point in two clusters, so membership comes from the centers.
	assignments := make([]int, len(vectors))
	for _, o := range obs {
		to := o.(trackObservation)
		assignments[to.index] = result.Nearest(to)
	}
	return assignments, nil
}
