package syncx

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
)

func TestEmitAndSince(t *testing.T) {
	repo := NewEventRepo(dbtest.Open(t), "site-a")
	repo.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	ctx := context.Background()

	if err := repo.Emit(ctx, TypeAssessmentMaterialized, "a1", map[string]string{"subjectId": "s1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := repo.Append(ctx, Event{SiteID: "site-b", Type: TypeResultFinalized, Key: "r1", DataJSON: `{}`}); err != nil {
		t.Fatalf("append: %v", err)
	}

	evs, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("events = %d", len(evs))
	}
	first := evs[0]
	if first.SiteID != "site-a" || first.Key != "a1" || first.DataJSON != `{"subjectId":"s1"}` || first.CreatedAt != 1_700_000_000_000 {
		t.Fatalf("first event = %+v", first)
	}
	if evs[1].SiteID != "site-b" || evs[1].Seq <= first.Seq {
		t.Fatalf("second event = %+v", evs[1])
	}

	rest, err := repo.Since(ctx, first.Seq, 10)
	if err != nil || len(rest) != 1 || rest[0].Key != "r1" {
		t.Fatalf("since first: %+v %v", rest, err)
	}
}
