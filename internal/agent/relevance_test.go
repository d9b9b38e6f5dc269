package agent

import (
	"reflect"
	"testing"

	"overseer/internal/vfs"
)

func TestRankArtifactsEmptyStore(t *testing.T) {
	if got := RankArtifacts("anything", vfs.NewStore(), nil); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %v", got)
	}
}

func TestRankArtifactsOverlapBeatsRecency(t *testing.T) {
	store := vfs.NewStore()
	store.Write("sales_report.md", "x", 1)
	store.Write("scratch.txt", "x", 2)
	store.Write("random_notes.txt", "x", 3)

	got := RankArtifacts("update the sales report with totals", store, nil)
	if got[0] != "sales_report.md" {
		t.Fatalf("expected sales_report.md first, got %v", got)
	}
}

func TestRankArtifactsPreviousOutputBonus(t *testing.T) {
	store := vfs.NewStore()
	store.Write("a.txt", "x", 1)
	store.Write("b.txt", "x", 2)

	// Neither path overlaps with the description, so the bonus decides.
	got := RankArtifacts("do the next step", store, []string{"a.txt"})
	if got[0] != "a.txt" {
		t.Fatalf("expected previous output first, got %v", got)
	}
}

func TestRankArtifactsZeroOverlapFallsBackToRecency(t *testing.T) {
	store := vfs.NewStore()
	store.Write("first.txt", "x", 1)
	store.Write("second.txt", "x", 2)

	got := RankArtifacts("unrelated description", store, nil)
	want := []string{"second.txt", "first.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRankArtifactsDeterministic(t *testing.T) {
	store := vfs.NewStore()
	store.Write("report.md", "x", 1)
	store.Write("data.csv", "x", 1)
	store.Write("notes.txt", "x", 2)

	first := RankArtifacts("assemble the report from data", store, []string{"data.csv"})
	for i := 0; i < 10; i++ {
		if got := RankArtifacts("assemble the report from data", store, []string{"data.csv"}); !reflect.DeepEqual(got, first) {
			t.Fatalf("ranking not deterministic: %v vs %v", first, got)
		}
	}
}
