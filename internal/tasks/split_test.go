package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/spotdash/internal/services"
	"github.com/desertthunder/spotdash/internal/shared"
)

// groupedFeatures gives tracks in group 0 quiet acoustic features and group 1 loud danceable ones.
func groupedFeatures(api *mockSpotify, tracks []services.Track, group func(i int) int) {
	for i, tr := range tracks {
		f := &services.AudioFeatures{ID: tr.ID, Acousticness: 0.9, Danceability: 0.2, Liveness: 0.1, Loudness: -20, Speechiness: 0.05}
		if group(i) == 1 {
			f = &services.AudioFeatures{ID: tr.ID, Acousticness: 0.1, Danceability: 0.9, Liveness: 0.3, Loudness: -4, Speechiness: 0.1}
		}
		api.features[tr.ID] = f
	}
}

// recordingClusterer assigns by the loudness coordinate and records its inputs.
type recordingClusterer struct {
	calls   int
	k       int
	vectors [][]float64
	assign  func(vectors [][]float64, k int) []int
}

func (c *recordingClusterer) Cluster(vectors [][]float64, k int) ([]int, error) {
	c.calls++
	c.k, c.vectors = k, vectors
	if c.assign != nil {
		return c.assign(vectors, k), nil
	}
	out := make([]int, len(vectors))
	for i, v := range vectors {
		if v[3] > -10 {
			out[i] = 1
		}
	}
	return out, nil
}

func TestSplit(t *testing.T) {
	ctx := context.Background()

	t.Run("Two Groups", func(t *testing.T) {
		api := newMockSpotify()
		tracks := append(makeTracks(6, "q", "folk-artist"), makeTracks(6, "l", "dance-artist")...)
		api.playlistTracks["pl"] = tracks
		groupedFeatures(api, tracks, func(i int) int { return i / 6 })
		api.artists["folk-artist"] = services.Artist{ID: "folk-artist", Genres: []string{"folk", "indie"}}
		api.artists["dance-artist"] = services.Artist{ID: "dance-artist", Genres: []string{"edm"}}

		clusterer := &recordingClusterer{}
		engine := NewEngine(Options{API: api, Clusterer: clusterer})

		result, err := engine.Split(ctx, "pl", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if clusterer.k != 2 || result.K != 2 {
			t.Errorf("expected k=2, got %d", clusterer.k)
		}
		if len(clusterer.vectors) != 12 || len(clusterer.vectors[0]) != 5 {
			t.Errorf("unexpected vectors %v", clusterer.vectors)
		}
		if len(result.Clusters) != 2 {
			t.Fatalf("expected 2 clusters, got %d", len(result.Clusters))
		}

		quiet, loud := result.Clusters[0], result.Clusters[1]
		if quiet.Label != "folk" || loud.Label != "edm" {
			t.Errorf("unexpected labels %q, %q", quiet.Label, loud.Label)
		}
		for i, tr := range quiet.Tracks {
			if tr.ID != fmt.Sprintf("q%d", i) {
				t.Errorf("expected original order, got %s at %d", tr.ID, i)
			}
		}
		if api.calls["SeveralArtists"] != 1 {
			t.Errorf("expected one artist lookup, got %d", api.calls["SeveralArtists"])
		}
	})

	t.Run("Drops Tracks Without Features", func(t *testing.T) {
		api := newMockSpotify()
		tracks := makeTracks(12, "t", "a")
		api.playlistTracks["pl"] = tracks
		groupedFeatures(api, tracks, func(i int) int { return i % 2 })
		delete(api.features, "t3")
		delete(api.features, "t4")
		delete(api.features, "t5")

		clusterer := &recordingClusterer{}
		engine := NewEngine(Options{API: api, Clusterer: clusterer})

		result, err := engine.Split(ctx, "pl", nil)
		if !errors.Is(err, shared.ErrNotEnoughTracks) {
			t.Fatalf("expected ErrNotEnoughTracks, got %v", err)
		}
		if !result.Insufficient || result.Analyzed != 9 || result.Message == "" {
			t.Errorf("unexpected result %+v", result)
		}
		if clusterer.calls != 0 {
			t.Error("expected clusterer not to be called")
		}
	})

	t.Run("Nine Tracks Is Insufficient", func(t *testing.T) {
		api := newMockSpotify()
		tracks := makeTracks(9, "t", "a")
		api.playlistTracks["pl"] = tracks
		groupedFeatures(api, tracks, func(int) int { return 0 })

		clusterer := &recordingClusterer{}
		engine := NewEngine(Options{API: api, Clusterer: clusterer})

		result, err := engine.Split(ctx, "pl", nil)
		if !errors.Is(err, shared.ErrNotEnoughTracks) {
			t.Errorf("expected ErrNotEnoughTracks, got %v", err)
		}
		if result == nil || !result.Insufficient {
			t.Errorf("expected insufficient result, got %+v", result)
		}
		if clusterer.calls != 0 {
			t.Error("expected clusterer not to be called")
		}
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		api := newMockSpotify()
		api.playlistTracks["pl"] = nil
		engine := NewEngine(Options{API: api, Clusterer: &recordingClusterer{}})

		if _, err := engine.Split(ctx, "pl", nil); !errors.Is(err, shared.ErrNotEnoughTracks) {
			t.Errorf("expected ErrNotEnoughTracks, got %v", err)
		}
		if api.calls["AudioFeatures"] != 0 {
			t.Error("expected no features request")
		}
	})

	t.Run("Caps And Drops Clusters", func(t *testing.T) {
		api := newMockSpotify()
		tracks := makeTracks(34, "t", "a")
		api.playlistTracks["pl"] = tracks
		groupedFeatures(api, tracks, func(int) int { return 0 })

		// 25 in group 0, 4 in group 1, 5 in group 2
		clusterer := &recordingClusterer{assign: func(vectors [][]float64, k int) []int {
			out := make([]int, len(vectors))
			for i := range out {
				switch {
				case i < 25:
					out[i] = 0
				case i < 29:
					out[i] = 1
				default:
					out[i] = 2
				}
			}
			return out
		}}
		engine := NewEngine(Options{API: api, Clusterer: clusterer})

		result, err := engine.Split(ctx, "pl", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.K != 3 {
			t.Errorf("expected k=3, got %d", result.K)
		}
		if len(result.Clusters) != 2 {
			t.Fatalf("expected 2 retained clusters, got %d", len(result.Clusters))
		}
		if n := len(result.Clusters[0].Tracks); n != MaxClusterSize {
			t.Errorf("expected cap of %d, got %d", MaxClusterSize, n)
		}
		if result.Clusters[0].Tracks[19].ID != "t19" {
			t.Error("expected the first 20 tracks to be kept")
		}
		if result.Clusters[1].Index != 2 || len(result.Clusters[1].Tracks) != 5 {
			t.Errorf("unexpected second cluster %+v", result.Clusters[1])
		}
		if result.Clusters[0].Label != "Playlist 1" || result.Clusters[1].Label != "Playlist 2" {
			t.Errorf("expected fallback labels, got %q, %q", result.Clusters[0].Label, result.Clusters[1].Label)
		}
	})

	t.Run("Label Lookup Failure Falls Back", func(t *testing.T) {
		api := newMockSpotify()
		tracks := makeTracks(10, "t", "a")
		api.playlistTracks["pl"] = tracks
		groupedFeatures(api, tracks, func(i int) int { return i / 5 })
		api.artistsErr = shared.ErrNetwork
		engine := NewEngine(Options{API: api, Clusterer: &recordingClusterer{}})

		result, err := engine.Split(ctx, "pl", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for i, c := range result.Clusters {
			if want := fmt.Sprintf("Playlist %d", i+1); c.Label != want {
				t.Errorf("expected %q, got %q", want, c.Label)
			}
		}
	})

	t.Run("Bad Assignments", func(t *testing.T) {
		api := newMockSpotify()
		tracks := makeTracks(10, "t", "a")
		api.playlistTracks["pl"] = tracks
		groupedFeatures(api, tracks, func(int) int { return 0 })

		engine := NewEngine(Options{API: api, Clusterer: ClustererFunc(func(v [][]float64, k int) ([]int, error) {
			return []int{0, 1, 7}, nil
		})})
		if _, err := engine.Split(ctx, "pl", nil); !errors.Is(err, shared.ErrClustering) {
			t.Errorf("expected ErrClustering, got %v", err)
		}

		engine = NewEngine(Options{API: api, Clusterer: ClustererFunc(func(v [][]float64, k int) ([]int, error) {
			return nil, errors.New("diverged")
		})})
		if _, err := engine.Split(ctx, "pl", nil); !errors.Is(err, shared.ErrClustering) {
			t.Errorf("expected ErrClustering, got %v", err)
		}
	})

	t.Run("SaveCluster", func(t *testing.T) {
		api := newMockSpotify()
		engine := NewEngine(Options{API: api})
		cluster := Cluster{Label: "edm", Tracks: makeTracks(6, "t", "a")}

		pl, err := engine.SaveCluster(ctx, "Gym", true, cluster, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.Name != "Gym - edm" || !api.createdVis[0] {
			t.Errorf("unexpected playlist %+v", pl)
		}
		if len(api.added[0]) != 6 {
			t.Errorf("expected 6 uris, got %d", len(api.added[0]))
		}
	})
}

func TestClusterCount(t *testing.T) {
	tests := map[int]int{10: 2, 19: 2, 20: 2, 30: 3, 49: 4, 50: 5, 500: 5}
	for n, want := range tests {
		if got := ClusterCount(n); got != want {
			t.Errorf("ClusterCount(%d) = %d; want %d", n, got, want)
		}
	}
}

func TestTopGenre(t *testing.T) {
	genres := map[string]string{"a": "rock", "b": "pop", "c": "pop"}

	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"Majority", []string{"a", "b", "c"}, "pop"},
		{"Tie Goes To First", []string{"a", "b"}, "rock"},
		{"Unknown Artists", []string{"x", "y"}, ""},
		{"Empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := topGenre(tt.ids, genres); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestKMeansClusterer(t *testing.T) {
	t.Run("Separates Distant Groups", func(t *testing.T) {
		var vectors [][]float64
		for i := range 6 {
			vectors = append(vectors, []float64{0.9, 0.1, 0.1, -20 - float64(i)*0.01, 0.05})
		}
		for i := range 6 {
			vectors = append(vectors, []float64{0.1, 0.9, 0.3, -4 - float64(i)*0.01, 0.1})
		}

		assign, err := NewKMeansClusterer().Cluster(vectors, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(assign) != 12 {
			t.Fatalf("expected 12 assignments, got %d", len(assign))
		}
		for i := range 6 {
			if assign[i] != assign[0] {
				t.Errorf("expected track %d with group 0", i)
			}
			if assign[6+i] != assign[6] {
				t.Errorf("expected track %d with group 1", 6+i)
			}
		}
		if assign[0] == assign[6] {
			t.Error("expected the groups to be separated")
		}
	})

	t.Run("Every Assignment In Range", func(t *testing.T) {
		var vectors [][]float64
		for i := range 30 {
			vectors = append(vectors, []float64{float64(i%7) / 7, float64(i%3) / 3, 0.5, -float64(i), 0.1})
		}

		assign, err := NewKMeansClusterer().Cluster(vectors, 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for i, a := range assign {
			if a < 0 || a >= 3 {
				t.Errorf("assignment %d out of range: %d", i, a)
			}
		}
	})

	t.Run("Too Few Vectors", func(t *testing.T) {
		if _, err := NewKMeansClusterer().Cluster([][]float64{{1}}, 2); err == nil {
			t.Error("expected error")
		}
	})
}
