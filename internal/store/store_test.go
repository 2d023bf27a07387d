package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/store"
)

func setup(t *testing.T) *store.Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := store.MigrateUp(dbURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)
	return store.New(pool)
}

// each test gets its own far-future day so runs never collide on the slot key
func uniqueDay() model.Date {
	n := time.Now().UnixNano() % 100000
	return model.NewDate(2100, time.January, 1).AddDays(int(n))
}

func registerUser(t *testing.T, st *store.Store) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8]),
		PasswordHash: "x",
		Name:         "Test User",
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestPostgresCreateAndFind(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	day := uniqueDay()
	a := newSlot(t, st, day, 9)

	got, err := st.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Date.Compare(day) != 0 || got.StartTime != a.StartTime || got.EndTime != a.EndTime {
		t.Errorf("round trip mismatch: %+v vs %+v", got, a)
	}
	if !got.IsAvailable || got.ReservedBy != nil || got.Version != 1 {
		t.Errorf("fresh slot state: %+v", got)
	}
}

func TestPostgresFindMissing(t *testing.T) {
	st := setup(t)
	for _, id := range []string{uuid.New().String(), "not-a-uuid"} {
		if _, err := st.FindByID(context.Background(), id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestPostgresDuplicateSlot(t *testing.T) {
	st := setup(t)
	day := uniqueDay()
	newSlot(t, st, day, 9)
	dup := &model.Appointment{
		ID: uuid.New().String(), Date: day,
		StartTime: model.NewTimeOfDay(9, 0), EndTime: model.NewTimeOfDay(10, 0), IsAvailable: true,
	}
	if err := st.CreateAppointment(context.Background(), dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPostgresSaveStale(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u1, u2 := registerUser(t, st), registerUser(t, st)
	a := newSlot(t, st, uniqueDay(), 10)

	first, _ := st.FindByID(ctx, a.ID)
	second, _ := st.FindByID(ctx, a.ID)

	first.Reserve(u1.ID)
	if _, err := st.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second.Reserve(u2.ID)
	if _, err := st.Save(ctx, second); !errors.Is(err, store.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	mine, err := st.ListByOwner(ctx, u1.ID)
	if err != nil || len(mine) != 1 || mine[0].ID != a.ID {
		t.Errorf("list by owner: %v %+v", err, mine)
	}
}

func TestPostgresConcurrentSave(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	a := newSlot(t, st, uniqueDay(), 11)

	const n = 10
	users := make([]*model.User, n)
	for i := range users {
		users[i] = registerUser(t, st)
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cur, err := st.FindByID(ctx, a.ID)
			if err != nil {
				results <- err
				return
			}
			if !cur.IsAvailable {
				results <- store.ErrStale
				return
			}
			cur.Reserve(users[i].ID)
			_, err = st.Save(ctx, cur)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrStale):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
}

func TestPostgresUsersAndTokens(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := registerUser(t, st)

	if err := st.CreateUser(ctx, &model.User{ID: uuid.New().String(), Email: u.Email, PasswordHash: "x", Name: "dup"}); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	got, err := st.UserByEmail(ctx, u.Email)
	if err != nil || got.ID != u.ID {
		t.Fatalf("by email: %v", err)
	}

	hash := uuid.New().String()
	oldID, err := st.CreateRefreshToken(ctx, u.ID, hash, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	newHash := uuid.New().String()
	if err := st.RotateRefreshToken(ctx, oldID, uuid.New().String(), u.ID, newHash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	old, _ := st.GetRefreshTokenByHash(ctx, hash)
	if !old.Revoked || old.ReplacedBy == nil {
		t.Errorf("old token not revoked: %+v", old)
	}
	if err := st.RevokeAllRefreshTokens(ctx, u.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	cur, _ := st.GetRefreshTokenByHash(ctx, newHash)
	if !cur.Revoked {
		t.Error("token not revoked")
	}
}
