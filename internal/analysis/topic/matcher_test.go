package topic

import "testing"

var buckets = []Bucket{
	{Topic: "memory", Keywords: []string{"memory", "leak", "ram"}},
	{Topic: "performance", Keywords: []string{"slow", "performance", "latency"}},
	{Topic: "frontend", Keywords: []string{"react", "mobile", "slow"}},
}

func TestBestPicksHighestScore(t *testing.T) {
	m := Best("My React app is slow on mobile devices", buckets)
	if m.Topic != "frontend" {
		t.Fatalf("expected frontend, got %q", m.Topic)
	}
	if m.Score != 3*keywordWeight {
		t.Fatalf("expected score %d, got %d", 3*keywordWeight, m.Score)
	}
}

func TestBestTieResolvesToFirstBucket(t *testing.T) {
	m := Best("it is slow", buckets)
	if m.Topic != "performance" {
		t.Fatalf("expected performance on tie, got %q", m.Topic)
	}
}

func TestBestNoMatch(t *testing.T) {
	m := Best("tell me a joke", buckets)
	if m.Matched() {
		t.Fatalf("expected no match, got %+v", m)
	}
	if Best("   ", buckets).Matched() {
		t.Fatal("expected blank text not to match")
	}
}

func TestScoresListsEveryHit(t *testing.T) {
	got := Scores("memory leak makes it slow", buckets)
	if len(got) != 3 {
		t.Fatalf("expected 3 scored topics, got %d", len(got))
	}
	if got[0].Topic != "memory" || got[0].Score != 2*keywordWeight {
		t.Fatalf("unexpected memory score: %+v", got[0])
	}
}
