package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"memberwatch/internal/storage"
	"memberwatch/internal/transport"
	logx "memberwatch/pkg/logx"
)

type fakeFetcher struct {
	counts map[string]int64
	errs   map[string]error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) (int64, error) {
	f.calls++
	if err := f.errs[id]; err != nil {
		return 0, err
	}
	return f.counts[id], nil
}

type fakePublisher struct {
	posts     []transport.Notification
	deletes   []string
	postErr   error
	deleteErr error
	nextID    int
}

func (p *fakePublisher) Post(ctx context.Context, to transport.Target, n transport.Notification) (string, error) {
	p.posts = append(p.posts, n)
	if p.postErr != nil {
		return "", p.postErr
	}
	p.nextID++
	return fmt.Sprintf("m%d", p.nextID), nil
}

func (p *fakePublisher) Delete(ctx context.Context, to transport.Target, id string) error {
	p.deletes = append(p.deletes, id)
	return p.deleteErr
}

var (
	fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entityE  = Entity{ID: "E", Target: transport.Target{Kind: transport.KindDiscord, WebhookID: "1"}}
	settings = Settings{Step: 100, Title: "Roblox Group Member Count", Color: 5814783, FieldName: "Current Members"}
)

func i64(v int64) *int64 { return &v }

func newTracker(t *testing.T, f *fakeFetcher, p *fakePublisher, seed map[string]storage.EntityState) (*Tracker, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	for id, st := range seed {
		if err := store.SaveState(context.Background(), id, st); err != nil {
			t.Fatal(err)
		}
	}
	tr := New(f, p, store, settings, logx.Nop())
	tr.now = func() time.Time { return fixedNow }
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tr, store
}

func TestColdStartPostsWithoutDelete(t *testing.T) {
	for _, count := range []int64{0, 7, 300} {
		f := &fakeFetcher{counts: map[string]int64{"E": count}}
		p := &fakePublisher{}
		tr, _ := newTracker(t, f, p, nil)

		res := tr.Update(context.Background(), entityE)
		if res.Outcome != OutcomeChanged {
			t.Fatalf("count %d: outcome = %v", count, res.Outcome)
		}
		if len(p.deletes) != 0 || len(p.posts) != 1 {
			t.Fatalf("count %d: deletes=%v posts=%d", count, p.deletes, len(p.posts))
		}
		st, ok := tr.State("E")
		if c, has := st.Count(); !ok || !has || c != count || st.LastNotificationID != "m1" {
			t.Fatalf("count %d: state = %+v", count, st)
		}
	}
}

func TestUnchangedCountIsIdempotent(t *testing.T) {
	f := &fakeFetcher{counts: map[string]int64{"E": 500}}
	p := &fakePublisher{}
	seed := map[string]storage.EntityState{"E": {LastCount: i64(500), LastNotificationID: "abc"}}
	tr, _ := newTracker(t, f, p, seed)

	for i := 0; i < 2; i++ {
		res := tr.Update(context.Background(), entityE)
		if res.Outcome != OutcomeUnchanged {
			t.Fatalf("outcome = %v", res.Outcome)
		}
	}
	if len(p.posts) != 0 || len(p.deletes) != 0 {
		t.Fatalf("no publisher calls expected, got posts=%d deletes=%v", len(p.posts), p.deletes)
	}
	st, _ := tr.State("E")
	if c, _ := st.Count(); c != 500 || st.LastNotificationID != "abc" {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestChangedCountReplacesNotification(t *testing.T) {
	f := &fakeFetcher{counts: map[string]int64{"E": 520}}
	p := &fakePublisher{}
	seed := map[string]storage.EntityState{"E": {LastCount: i64(500), LastNotificationID: "abc"}}
	tr, store := newTracker(t, f, p, seed)

	res := tr.Update(context.Background(), entityE)
	if res.Outcome != OutcomeChanged || !res.Deleted || len(res.Failures) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(p.deletes) != 1 || p.deletes[0] != "abc" {
		t.Fatalf("deletes = %v", p.deletes)
	}
	if len(p.posts) != 1 {
		t.Fatalf("posts = %d", len(p.posts))
	}
	n := p.posts[0]
	wantMsg := "We're now on 520 members! Only 80 until the next milestone of 600 members!"
	if n.Description != wantMsg || n.Title != settings.Title || n.Color != settings.Color || !n.Timestamp.Equal(fixedNow) {
		t.Fatalf("notification = %+v", n)
	}
	if len(n.Fields) != 1 || n.Fields[0] != (transport.Field{Name: "Current Members", Value: "520", Inline: true}) {
		t.Fatalf("fields = %+v", n.Fields)
	}
	st, _ := tr.State("E")
	if c, _ := st.Count(); c != 520 || st.LastNotificationID != "m1" {
		t.Fatalf("state = %+v", st)
	}

	persisted, _ := store.LoadStates(context.Background())
	if persisted["E"].LastNotificationID != "m1" {
		t.Fatalf("persisted = %+v", persisted["E"])
	}
	audit := store.Audit()
	if len(audit) != 1 || audit[0].Outcome != "changed" || audit[0].Milestone != 600 {
		t.Fatalf("audit = %+v", audit)
	}
}

func TestFetchFailureLeavesStateUntouched(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{"E": errors.New("connection refused")}}
	p := &fakePublisher{}
	seed := map[string]storage.EntityState{"E": {LastCount: i64(500), LastNotificationID: "abc"}}
	tr, store := newTracker(t, f, p, seed)

	res := tr.Update(context.Background(), entityE)
	if res.Outcome != OutcomeFailed || !res.Failed(FailureFetch) {
		t.Fatalf("result = %+v", res)
	}
	if len(p.posts) != 0 || len(p.deletes) != 0 {
		t.Fatal("no outbound notification calls expected")
	}
	st, _ := tr.State("E")
	if c, _ := st.Count(); c != 500 || st.LastNotificationID != "abc" {
		t.Fatalf("state changed: %+v", st)
	}
	if len(store.Audit()) != 0 {
		t.Fatal("fetch failures are not audited")
	}
}

func TestDeleteAndPostFailures(t *testing.T) {
	seed := func() map[string]storage.EntityState {
		return map[string]storage.EntityState{"E": {LastCount: i64(500), LastNotificationID: "abc"}}
	}
	tests := []struct {
		name      string
		deleteErr error
		postErr   error
		wantID    string
		wantKinds []FailureKind
	}{
		{name: "delete fails, post succeeds", deleteErr: errors.New("500"), wantID: "m1", wantKinds: []FailureKind{FailureDelete}},
		{name: "already deleted", deleteErr: transport.ErrNotFound, wantID: "m1"},
		{name: "post fails after delete", postErr: errors.New("429"), wantID: "", wantKinds: []FailureKind{FailurePost}},
		{name: "both fail", deleteErr: errors.New("500"), postErr: errors.New("429"), wantID: "abc", wantKinds: []FailureKind{FailureDelete, FailurePost}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{counts: map[string]int64{"E": 520}}
			p := &fakePublisher{deleteErr: tt.deleteErr, postErr: tt.postErr}
			tr, _ := newTracker(t, f, p, seed())

			res := tr.Update(context.Background(), entityE)
			if res.Outcome != OutcomeChanged {
				t.Fatalf("outcome = %v", res.Outcome)
			}
			if len(p.posts) != 1 {
				t.Fatal("post must be attempted regardless of delete result")
			}
			if len(res.Failures) != len(tt.wantKinds) {
				t.Fatalf("failures = %v", res.Failures)
			}
			for i, k := range tt.wantKinds {
				if res.Failures[i].Kind != k {
					t.Fatalf("failure[%d] = %v, want %v", i, res.Failures[i].Kind, k)
				}
			}
			st, _ := tr.State("E")
			if c, _ := st.Count(); c != 520 {
				t.Fatalf("count must advance on successful fetch, got %d", c)
			}
			if st.LastNotificationID != tt.wantID {
				t.Fatalf("LastNotificationID = %q, want %q", st.LastNotificationID, tt.wantID)
			}
		})
	}
}

func TestSweepIsSequentialAndHonorsCancel(t *testing.T) {
	f := &fakeFetcher{counts: map[string]int64{"A": 1, "B": 2, "C": 3}}
	p := &fakePublisher{}
	tr, _ := newTracker(t, f, p, nil)
	entities := []Entity{{ID: "A"}, {ID: "B"}, {ID: "C"}}

	res := tr.Sweep(context.Background(), entities)
	if len(res) != 3 || res[0].EntityID != "A" || res[2].EntityID != "C" {
		t.Fatalf("results = %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := f.calls
	if got := tr.Sweep(ctx, entities); len(got) != 0 || f.calls != calls {
		t.Fatalf("cancelled sweep ran %d updates", len(got))
	}
}

func TestSettingsApplyLive(t *testing.T) {
	f := &fakeFetcher{counts: map[string]int64{"E": 520}}
	p := &fakePublisher{}
	tr, _ := newTracker(t, f, p, nil)
	tr.SetSettings(Settings{Step: 0, Title: "x"})
	if tr.Settings().Step != 100 {
		t.Fatal("non-positive step should fall back to the default")
	}
	tr.SetSettings(Settings{Step: 1000, Title: "x"})
	res := tr.Update(context.Background(), entityE)
	if res.Milestone != 1000 || p.posts[0].Title != "x" {
		t.Fatalf("settings not applied: %+v", res)
	}
}

func TestPreviewDoesNotPublish(t *testing.T) {
	f := &fakeFetcher{counts: map[string]int64{"E": 250}}
	p := &fakePublisher{}
	tr, _ := newTracker(t, f, p, nil)
	res := tr.Preview(context.Background(), entityE)
	if res.Message != "We're now on 250 members! Only 50 until the next milestone of 300 members!" {
		t.Fatalf("message = %q", res.Message)
	}
	if len(p.posts) != 0 {
		t.Fatal("preview must not publish")
	}
	if _, ok := tr.State("E"); ok {
		t.Fatal("preview must not create state")
	}
}
