package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testSong(id, title string) models.Song {
	return models.Song{
		ID:     id,
		Title:  title,
		Artist: models.MusicAttribute{ID: "ar1", Name: "Boards of Canada"},
		Album:  models.MusicAttribute{ID: "al1", Name: "Geogaddi"},
		Track:  3,
		Genre:  []models.MusicAttribute{{ID: "g1", Name: "Electronic"}},
	}
}

func TestSongRepository(t *testing.T) {
	t.Run("Upsert and Get", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))

		if err := repo.Upsert([]models.Song{testSong("1", "Music Is Math")}); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := repo.Get("1")
		if err != nil {
			t.Fatalf("failed to get song: %v", err)
		}
		if got.Title != "Music Is Math" {
			t.Errorf("expected title %q, got %q", "Music Is Math", got.Title)
		}
		if got.Album.Name != "Geogaddi" {
			t.Errorf("expected album Geogaddi, got %q", got.Album.Name)
		}
		if len(got.Genre) != 1 || got.Genre[0].Name != "Electronic" {
			t.Errorf("expected genre to round trip, got %v", got.Genre)
		}
	})

	t.Run("Upsert replaces by id", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))

		if err := repo.Upsert([]models.Song{testSong("1", "Old")}); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		if err := repo.Upsert([]models.Song{testSong("1", "New")}); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		n, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 song, got %d", n)
		}

		got, _ := repo.Get("1")
		if got.Title != "New" {
			t.Errorf("expected replaced title, got %q", got.Title)
		}
	})

	t.Run("Upsert empty is a no-op", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		if err := repo.Upsert(nil); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		songs := []models.Song{testSong("1", "Roygbiv"), testSong("2", "Aquarius"), testSong("3", "100% Discount")}
		if err := repo.Upsert(songs); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		tests := []struct {
			name  string
			query string
			want  []string
		}{
			{"empty matches all ordered by title", "", []string{"3", "2", "1"}},
			{"case insensitive", "aqua", []string{"2"}},
			{"matches album", "geogaddi", []string{"3", "2", "1"}},
			{"escapes wildcard", "100%", []string{"3"}},
			{"no match", "zzz", []string{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.Search(tt.query)
				if err != nil {
					t.Fatalf("search failed: %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
				}
				for i, id := range tt.want {
					if got[i].ID != id {
						t.Errorf("result %d: expected id %s, got %s", i, id, got[i].ID)
					}
				}
			})
		}
	})

	t.Run("SetFlag and SetRating", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		if err := repo.Upsert([]models.Song{testSong("1", "Dawn Chorus")}); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		if err := repo.SetFlag("1", 1); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}
		if err := repo.SetRating("1", 4); err != nil {
			t.Fatalf("failed to set rating: %v", err)
		}

		got, _ := repo.Get("1")
		if got.Flag != 1 || got.Rating != 4 {
			t.Errorf("expected flag 1 rating 4, got flag %d rating %d", got.Flag, got.Rating)
		}
	})

	t.Run("SetFlag on unknown id is not an error", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		if err := repo.SetFlag("missing", 1); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		_ = repo.Upsert([]models.Song{testSong("1", "a"), testSong("2", "b")})

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if n, _ := repo.Count(); n != 0 {
			t.Errorf("expected empty cache, got %d", n)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewSongRepository(setupTestDB(t))
		if _, err := repo.Get("missing"); err == nil {
			t.Error("expected error for missing song")
		}
	})
}

func TestAlbumRepository(t *testing.T) {
	t.Run("Artists round trip", func(t *testing.T) {
		repo := NewAlbumRepository(setupTestDB(t))
		album := models.Album{
			ID:      "al1",
			Name:    "Split",
			Artist:  models.MusicAttribute{ID: "ar1", Name: "First"},
			Artists: []models.MusicAttribute{{ID: "ar1", Name: "First"}, {ID: "ar2", Name: "Second"}},
			Year:    2004,
		}

		if err := repo.Upsert([]models.Album{album}); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := repo.Get("al1")
		if err != nil {
			t.Fatalf("failed to get album: %v", err)
		}
		if !got.HasArtist("ar2") {
			t.Errorf("expected secondary artist to survive, got %v", got.Artists)
		}
		if got.Year != 2004 {
			t.Errorf("expected year 2004, got %d", got.Year)
		}
	})

	t.Run("Search by artist name", func(t *testing.T) {
		repo := NewAlbumRepository(setupTestDB(t))
		_ = repo.Upsert([]models.Album{
			{ID: "1", Name: "Blue", Artist: models.MusicAttribute{ID: "a", Name: "Joni"}},
			{ID: "2", Name: "Kind of Blue", Artist: models.MusicAttribute{ID: "b", Name: "Miles"}},
			{ID: "3", Name: "Court and Spark", Artist: models.MusicAttribute{ID: "a", Name: "Joni"}},
		})

		got, err := repo.Search("joni")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
			t.Errorf("expected albums 1 and 3, got %v", got)
		}
	})
}

func TestArtistRepository(t *testing.T) {
	repo := NewArtistRepository(setupTestDB(t))
	_ = repo.Upsert([]models.Artist{{ID: "1", Name: "Low"}, {ID: "2", Name: "Slowdive"}, {ID: "3", Name: "Beach House"}})

	t.Run("Search", func(t *testing.T) {
		got, err := repo.Search("low")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 artists, got %d", len(got))
		}
	})

	t.Run("SetRating", func(t *testing.T) {
		if err := repo.SetRating("3", 5); err != nil {
			t.Fatalf("failed to set rating: %v", err)
		}
		got, _ := repo.Get("3")
		if got.Rating != 5 {
			t.Errorf("expected rating 5, got %d", got.Rating)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	repo := NewPlaylistRepository(setupTestDB(t))
	_ = repo.Upsert([]models.Playlist{{ID: "p1", Name: "Road trip", Owner: "alice", Items: 12}})

	got, err := repo.Get("p1")
	if err != nil {
		t.Fatalf("failed to get playlist: %v", err)
	}
	if got.Owner != "alice" || got.Items != 12 {
		t.Errorf("unexpected playlist %+v", got)
	}

	if err := repo.SetFlag("p1", 1); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	results, _ := repo.Search("alice")
	if len(results) != 1 || results[0].Flag != 1 {
		t.Errorf("expected flagged playlist in owner search, got %v", results)
	}
}

func TestUserRepository(t *testing.T) {
	t.Run("Get missing returns nil", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user, err := repo.Get("nobody")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}
	})

	t.Run("Save upserts by username", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if err := repo.Save(&models.User{ID: "1", Username: "alice", Email: "a@example.com"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := repo.Save(&models.User{ID: "1", Username: "alice", Email: "alice@example.com", Access: 100}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		user, err := repo.Get("alice")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if user.Email != "alice@example.com" || user.Access != 100 {
			t.Errorf("expected updated profile, got %+v", user)
		}
	})

	t.Run("Save requires username", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if err := repo.Save(&models.User{ID: "1"}); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		_ = repo.Save(&models.User{ID: "1", Username: "alice"})
		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if user, _ := repo.Get("alice"); user != nil {
			t.Error("expected user to be cleared")
		}
	})
}

func TestOfflineRepository(t *testing.T) {
	t.Run("Enqueue assigns id and sequence", func(t *testing.T) {
		repo := NewOfflineRepository(setupTestDB(t))
		m := &models.OfflineMutation{Kind: models.MutationLike, TargetID: "s1", Type: models.TypeSong, Value: 1}

		if err := repo.Enqueue(m); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if m.ID == "" {
			t.Error("expected id to be assigned")
		}
		if m.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", m.Sequence)
		}
	})

	t.Run("Pending preserves order and keeps duplicates", func(t *testing.T) {
		repo := NewOfflineRepository(setupTestDB(t))
		values := []int{1, 0, 1}
		for _, v := range values {
			m := &models.OfflineMutation{Kind: models.MutationLike, TargetID: "s1", Type: models.TypeSong, Value: v}
			if err := repo.Enqueue(m); err != nil {
				t.Fatalf("failed to enqueue: %v", err)
			}
		}
		rate := &models.OfflineMutation{Kind: models.MutationRate, TargetID: "a1", Type: models.TypeAlbum, Value: 3}
		if err := repo.Enqueue(rate); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		likes, err := repo.Pending(models.MutationLike)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(likes) != len(values) {
			t.Fatalf("expected %d likes, got %d", len(values), len(likes))
		}
		for i, v := range values {
			if likes[i].Value != v {
				t.Errorf("like %d: expected value %d, got %d", i, v, likes[i].Value)
			}
			if i > 0 && likes[i].Sequence <= likes[i-1].Sequence {
				t.Errorf("expected ascending sequence, got %d after %d", likes[i].Sequence, likes[i-1].Sequence)
			}
		}

		if n, _ := repo.Count(""); n != 4 {
			t.Errorf("expected 4 queued, got %d", n)
		}
		if n, _ := repo.Count(models.MutationRate); n != 1 {
			t.Errorf("expected 1 rate, got %d", n)
		}
	})

	t.Run("Enqueue rejects invalid", func(t *testing.T) {
		repo := NewOfflineRepository(setupTestDB(t))
		m := &models.OfflineMutation{Kind: models.MutationRate, TargetID: "s1", Type: models.TypeSong, Value: 9}
		if err := repo.Enqueue(m); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Remove and Drain", func(t *testing.T) {
		repo := NewOfflineRepository(setupTestDB(t))
		first := &models.OfflineMutation{Kind: models.MutationLike, TargetID: "s1", Type: models.TypeSong, Value: 1}
		second := &models.OfflineMutation{Kind: models.MutationLike, TargetID: "s2", Type: models.TypeSong, Value: 1}
		_ = repo.Enqueue(first)
		_ = repo.Enqueue(second)

		if err := repo.Remove(first.ID); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		remaining, _ := repo.All()
		if len(remaining) != 1 || remaining[0].ID != second.ID {
			t.Errorf("expected only second mutation to remain, got %v", remaining)
		}

		if err := repo.Drain(models.MutationLike); err != nil {
			t.Fatalf("failed to drain: %v", err)
		}
		if n, _ := repo.Count(""); n != 0 {
			t.Errorf("expected empty queue, got %d", n)
		}
	})
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", "%abc%"},
		{" abc ", "%abc%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
