package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/repositories"
	"github.com/desertthunder/ampsync/internal/services"
	"github.com/desertthunder/ampsync/internal/shared"
	"github.com/desertthunder/ampsync/internal/store"
	tu "github.com/desertthunder/ampsync/internal/testing"
)

type fakeSessions struct{ err error }

func (f *fakeSessions) Session(ctx context.Context) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{Auth: "tok", ServerURL: "https://x/server"}, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) (*models.ServerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ServerInfo{Server: "mock"}, nil
}

type fixture struct {
	mutator  *Mutator
	svc      *tu.MockAmpache
	sessions *fakeSessions
	pinger   *fakePinger
	store    *store.Store
	songs    *repositories.SongRepository
	albums   *repositories.AlbumRepository
	log      *repositories.OfflineRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		svc:      &tu.MockAmpache{},
		sessions: &fakeSessions{},
		pinger:   &fakePinger{},
		store:    st,
		songs:    repositories.NewSongRepository(db),
		albums:   repositories.NewAlbumRepository(db),
		log:      repositories.NewOfflineRepository(db),
	}
	f.mutator = NewMutator(Options{
		Caches: map[models.ResourceType]LocalCache{
			models.TypeSong:     f.songs,
			models.TypeAlbum:    f.albums,
			models.TypeArtist:   repositories.NewArtistRepository(db),
			models.TypePlaylist: repositories.NewPlaylistRepository(db),
		},
		Log:      f.log,
		Mode:     st,
		Service:  f.svc,
		Sessions: f.sessions,
		Pinger:   f.pinger,
	})

	if err := f.songs.Upsert([]models.Song{{ID: "s1", Title: "One"}, {ID: "s2", Title: "Two"}}); err != nil {
		t.Fatalf("failed to seed songs: %v", err)
	}
	return f
}

func (f *fixture) queued(t *testing.T) []models.OfflineMutation {
	t.Helper()
	all, err := f.log.All()
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	return all
}

func (f *fixture) song(t *testing.T, id string) *models.Song {
	t.Helper()
	s, err := f.songs.Get(id)
	if err != nil {
		t.Fatalf("failed to get song %s: %v", id, err)
	}
	return s
}

func TestMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("online like updates cache and server", func(t *testing.T) {
		f := newFixture(t)

		last, ok, err := models.Final(f.mutator.Like(ctx, "s1", true, models.TypeSong))
		if err != nil || !ok || !last.Data {
			t.Fatalf("expected success, got ok=%v data=%v err=%v", ok, last.Data, err)
		}
		if got := f.song(t, "s1").Flag; got != 1 {
			t.Errorf("expected cached flag 1, got %d", got)
		}
		if len(f.svc.FlagCalls) != 1 || !f.svc.FlagCalls[0].Flagged || f.svc.FlagCalls[0].Type != models.TypeSong {
			t.Errorf("unexpected flag calls: %+v", f.svc.FlagCalls)
		}
		if len(f.queued(t)) != 0 {
			t.Error("expected nothing queued while online")
		}
	})

	t.Run("emission order", func(t *testing.T) {
		f := newFixture(t)

		var got []models.Status
		var loading []bool
		for r := range f.mutator.Rate(ctx, "s1", 4, models.TypeSong) {
			got = append(got, r.Status)
			if r.Status == models.StatusLoading {
				loading = append(loading, r.Loading)
			}
		}

		want := []models.Status{models.StatusLoading, models.StatusSuccess, models.StatusLoading}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("emission %d: expected %v, got %v", i, want[i], got[i])
			}
		}
		if len(loading) != 2 || !loading[0] || loading[1] {
			t.Errorf("expected loading true then false, got %v", loading)
		}
	})

	t.Run("offline queues without calling server", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SetOfflineMode(true); err != nil {
			t.Fatal(err)
		}

		if _, _, err := models.Final(f.mutator.Rate(ctx, "s2", 5, models.TypeSong)); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if _, _, err := models.Final(f.mutator.Like(ctx, "s2", false, models.TypeSong)); err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if f.svc.TotalCalls() != 0 {
			t.Errorf("expected no server calls, got %d", f.svc.TotalCalls())
		}
		if got := f.song(t, "s2").Rating; got != 5 {
			t.Errorf("expected cached rating 5, got %d", got)
		}

		queued := f.queued(t)
		if len(queued) != 2 {
			t.Fatalf("expected 2 queued, got %d", len(queued))
		}
		if queued[0].Kind != models.MutationRate || queued[0].Value != 5 {
			t.Errorf("unexpected first mutation: %+v", queued[0])
		}
		if queued[1].Kind != models.MutationLike || queued[1].Value != 0 {
			t.Errorf("unexpected second mutation: %+v", queued[1])
		}
		if queued[0].Sequence >= queued[1].Sequence {
			t.Errorf("expected increasing sequence, got %d then %d", queued[0].Sequence, queued[1].Sequence)
		}
	})

	t.Run("duplicate offline mutations are all kept", func(t *testing.T) {
		f := newFixture(t)
		f.store.SetOfflineMode(true)

		for range 3 {
			models.Final(f.mutator.Like(ctx, "s1", true, models.TypeSong))
		}
		if got := len(f.queued(t)); got != 3 {
			t.Errorf("expected 3 queued, got %d", got)
		}
	})

	t.Run("invalid rating rejected before any write", func(t *testing.T) {
		f := newFixture(t)

		_, ok, err := models.Final(f.mutator.Rate(ctx, "s1", 6, models.TypeSong))
		if ok || !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got ok=%v err=%v", ok, err)
		}
		if got := f.song(t, "s1").Rating; got != 0 {
			t.Errorf("expected rating untouched, got %d", got)
		}
		if f.svc.Calls("rate") != 0 {
			t.Error("expected no server call")
		}
	})

	t.Run("uncached target still reaches server", func(t *testing.T) {
		f := newFixture(t)

		if _, _, err := models.Final(f.mutator.Like(ctx, "al9", true, models.TypeAlbum)); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if f.svc.Calls("flag") != 1 {
			t.Errorf("expected 1 flag call, got %d", f.svc.Calls("flag"))
		}
	})

	t.Run("server failure keeps local change", func(t *testing.T) {
		f := newFixture(t)
		f.svc.FlagErr = &services.APIError{Code: 4710, Message: "bad request"}

		_, ok, err := models.Final(f.mutator.Like(ctx, "s1", true, models.TypeSong))
		if ok || err == nil {
			t.Fatalf("expected failure, got ok=%v err=%v", ok, err)
		}
		if got := f.song(t, "s1").Flag; got != 1 {
			t.Errorf("expected local flag kept, got %d", got)
		}
		if len(f.queued(t)) != 0 {
			t.Error("expected online failure not to be queued")
		}
	})

	t.Run("failure message is normalised", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.err = shared.ErrNotAuthenticated

		var failure models.Resource[bool]
		for r := range f.mutator.Like(ctx, "s1", true, models.TypeSong) {
			if r.IsError() {
				failure = r
			}
		}
		if failure.Message != "not logged in" {
			t.Errorf("expected normalised message, got %q", failure.Message)
		}
	})
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	opts := ReplayOpts{NumWorkers: 3, RateLimit: 1000}

	enqueue := func(t *testing.T, f *fixture, mutations ...models.OfflineMutation) {
		t.Helper()
		for i := range mutations {
			if err := f.log.Enqueue(&mutations[i]); err != nil {
				t.Fatalf("failed to enqueue: %v", err)
			}
		}
	}

	t.Run("replays and drains the log", func(t *testing.T) {
		f := newFixture(t)
		enqueue(t, f,
			models.OfflineMutation{Kind: models.MutationLike, TargetID: "s1", Type: models.TypeSong, Value: 1},
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "s2", Type: models.TypeSong, Value: 3},
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "al1", Type: models.TypeAlbum, Value: 2},
		)

		progress := make(chan ProgressUpdate, 32)
		result, err := f.mutator.Replay(ctx, progress, opts)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Total != 3 || result.Replayed != 3 || result.Failed != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
		if len(f.queued(t)) != 0 {
			t.Error("expected empty log after replay")
		}
		if f.svc.Calls("flag") != 1 || f.svc.Calls("rate") != 2 {
			t.Errorf("expected 1 flag and 2 rate calls, got %d and %d", f.svc.Calls("flag"), f.svc.Calls("rate"))
		}

		close(progress)
		var last ProgressUpdate
		for u := range progress {
			last = u
		}
		if last.Phase != ReplayDone {
			t.Errorf("expected final phase %v, got %v", ReplayDone, last.Phase)
		}
	})

	t.Run("keeps per target order", func(t *testing.T) {
		f := newFixture(t)
		enqueue(t, f,
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "s1", Type: models.TypeSong, Value: 1},
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "s2", Type: models.TypeSong, Value: 4},
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "s1", Type: models.TypeSong, Value: 2},
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "s1", Type: models.TypeSong, Value: 5},
		)

		if _, err := f.mutator.Replay(ctx, nil, opts); err != nil {
			t.Fatal(err)
		}

		var s1 []int
		for _, c := range f.svc.RateCalls {
			if c.ID == "s1" {
				s1 = append(s1, c.Rating)
			}
		}
		want := []int{1, 2, 5}
		if len(s1) != len(want) {
			t.Fatalf("expected %v, got %v", want, s1)
		}
		for i := range want {
			if s1[i] != want[i] {
				t.Errorf("call %d: expected %d, got %d", i, want[i], s1[i])
			}
		}
	})

	t.Run("failure holds back the rest of the target", func(t *testing.T) {
		f := newFixture(t)
		f.svc.FailIDs = map[string]error{"s1": &services.APIError{Code: 4704, Message: "not found"}}
		enqueue(t, f,
			models.OfflineMutation{Kind: models.MutationLike, TargetID: "s1", Type: models.TypeSong, Value: 1},
			models.OfflineMutation{Kind: models.MutationRate, TargetID: "s1", Type: models.TypeSong, Value: 3},
			models.OfflineMutation{Kind: models.MutationLike, TargetID: "s2", Type: models.TypeSong, Value: 1},
		)

		result, err := f.mutator.Replay(ctx, nil, opts)
		if err != nil {
			t.Fatal(err)
		}
		if result.Replayed != 1 || result.Failed != 1 || result.Skipped != 1 {
			t.Errorf("expected 1 replayed, 1 failed, 1 skipped, got %+v", result)
		}
		if f.svc.Calls("rate") != 0 {
			t.Error("expected held back rate not to be sent")
		}

		left := f.queued(t)
		if len(left) != 2 {
			t.Fatalf("expected 2 mutations left, got %d", len(left))
		}
		for _, m := range left {
			if m.TargetID != "s1" {
				t.Errorf("expected only s1 left, got %s", m.TargetID)
			}
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		f := newFixture(t)
		f.pinger.err = shared.ErrServiceUnavailable
		enqueue(t, f, models.OfflineMutation{Kind: models.MutationLike, TargetID: "s1", Type: models.TypeSong, Value: 1})

		_, err := f.mutator.Replay(ctx, nil, opts)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
		if len(f.queued(t)) != 1 {
			t.Error("expected log untouched")
		}
	})

	t.Run("empty log", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.mutator.Replay(ctx, nil, opts)
		if err != nil {
			t.Fatal(err)
		}
		if result.Total != 0 || f.svc.TotalCalls() != 0 {
			t.Errorf("expected no work, got %+v with %d calls", result, f.svc.TotalCalls())
		}
	})
}

func TestGroupByTarget(t *testing.T) {
	mutations := []models.OfflineMutation{
		{TargetID: "a", Type: models.TypeSong, Value: 1},
		{TargetID: "b", Type: models.TypeSong, Value: 2},
		{TargetID: "a", Type: models.TypeAlbum, Value: 3},
		{TargetID: "a", Type: models.TypeSong, Value: 4},
	}

	chains := groupByTarget(mutations)
	if len(chains) != 3 {
		t.Fatalf("expected 3 chains, got %d", len(chains))
	}
	if len(chains[0]) != 2 || chains[0][0].Value != 1 || chains[0][1].Value != 4 {
		t.Errorf("unexpected first chain: %+v", chains[0])
	}
	if chains[1][0].TargetID != "b" || chains[2][0].Type != models.TypeAlbum {
		t.Errorf("unexpected chain order: %+v", chains)
	}
}
