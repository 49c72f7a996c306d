//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"hotel_backoffice/internal/domain"
	mysqlrepo "hotel_backoffice/internal/storage/mysql"
)

// ---------- small helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// startMySQL runs an isolated MySQL; Docker picks a free host port.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotel",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "hotel")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func newBooking(ref string, pkg int64, room int, checkIn string) domain.Booking {
	d, _ := domain.ParseDate(checkIn)
	s := domain.NewStay(d)
	now := time.Now().UTC()
	return domain.Booking{
		Reference: ref, PackageID: pkg, RoomNumber: room,
		CustomerName: "Ada Lovelace", CustomerEmail: "ada@example.com", CustomerPhone: "+442079460958",
		CheckIn: s.CheckIn, CheckOut: s.CheckOut, TotalPrice: 899, Status: domain.BookingPending,
		CreatedAt: now, UpdatedAt: now,
	}
}

func newIntent(id, ref string) domain.OutboxIntent {
	return domain.OutboxIntent{
		ID: id, Type: domain.NotificationBookingCreated, Title: "New booking received",
		Message: "Booking " + ref, BookingID: ref, Priority: domain.PriorityHigh, CreatedAt: time.Now().UTC(),
	}
}

// ---------- the tests ----------
func TestRepo_MySQL(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Arrange: one active package
	pkg, err := repo.CreatePackage(ctx, domain.Package{
		Title: "Winter week", Description: "Seven nights", Features: []string{"Breakfast", "Spa"},
		Price: 899.5, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreatePackage: %v", err)
	}

	t.Run("package round trip", func(t *testing.T) {
		got, err := repo.GetPackage(ctx, pkg.ID)
		if err != nil {
			t.Fatalf("GetPackage: %v", err)
		}
		if got.Title != "Winter week" || got.Price != 899.5 || len(got.Features) != 2 || got.Features[1] != "Spa" {
			t.Fatalf("unexpected package: %+v", got)
		}
	})

	t.Run("booking overlap and outbox", func(t *testing.T) {
		b, err := repo.InsertBooking(ctx, newBooking("BK-20240110-00000001", pkg.ID, 3, "2030-01-13"), newIntent("00000000-0000-0000-0000-000000000001", "BK-20240110-00000001"))
		if err != nil {
			t.Fatalf("InsertBooking: %v", err)
		}
		_, err = repo.InsertBooking(ctx, newBooking("BK-20240110-00000002", pkg.ID, 3, "2030-01-13"), newIntent("00000000-0000-0000-0000-000000000002", "BK-20240110-00000002"))
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if _, err := repo.InsertBooking(ctx, newBooking("BK-20240110-00000003", pkg.ID, 3, "2030-01-20"), newIntent("00000000-0000-0000-0000-000000000003", "BK-20240110-00000003")); err != nil {
			t.Fatalf("adjacent week should fit: %v", err)
		}

		got, err := repo.GetBooking(ctx, domain.BookingRef{Reference: b.Reference})
		if err != nil {
			t.Fatalf("GetBooking: %v", err)
		}
		if got.CheckIn.Format(domain.DateLayout) != "2030-01-13" || got.CheckOut.Format(domain.DateLayout) != "2030-01-20" {
			t.Fatalf("unexpected dates: %s..%s", got.CheckIn, got.CheckOut)
		}

		intents, err := repo.PendingIntents(ctx, 10)
		if err != nil {
			t.Fatalf("PendingIntents: %v", err)
		}
		if len(intents) != 2 {
			t.Fatalf("expected 2 pending intents (rejected booking adds none), got %d", len(intents))
		}
		if err := repo.MarkIntentDispatched(ctx, intents[0].ID, time.Now()); err != nil {
			t.Fatalf("MarkIntentDispatched: %v", err)
		}
		if err := repo.MarkIntentFailed(ctx, intents[1].ID, "broker down", true, time.Now()); err != nil {
			t.Fatalf("MarkIntentFailed: %v", err)
		}
		intents, _ = repo.PendingIntents(ctx, 10)
		if len(intents) != 0 {
			t.Fatalf("expected no pending intents, got %d", len(intents))
		}
		if n, err := repo.PurgeSettledIntents(ctx, time.Now().Add(-time.Hour)); err != nil || n != 0 {
			t.Fatalf("PurgeSettledIntents(recent): n=%d err=%v", n, err)
		}
		if n, err := repo.PurgeSettledIntents(ctx, time.Now().Add(time.Minute)); err != nil || n != 2 {
			t.Fatalf("PurgeSettledIntents: n=%d err=%v", n, err)
		}

		// status guard: stored status is pending
		next := got
		next.Status = domain.BookingConfirmed
		if _, err := repo.UpdateBooking(ctx, next, domain.BookingConfirmed, nil); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict on stale status, got %v", err)
		}
		cancelled := got
		cancelled.Status = domain.BookingCancelled
		if _, err := repo.UpdateBooking(ctx, cancelled, domain.BookingPending, nil); err != nil {
			t.Fatalf("UpdateBooking: %v", err)
		}
		booked, err := repo.BookedRooms(ctx, got.Stay())
		if err != nil {
			t.Fatalf("BookedRooms: %v", err)
		}
		if len(booked) != 0 {
			t.Fatalf("cancelled booking still blocks: %v", booked)
		}
	})

	t.Run("concurrent inserts on one room", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ref := fmt.Sprintf("BK-20240110-C000000%d", i)
				_, errs[i] = repo.InsertBooking(ctx, newBooking(ref, pkg.ID, 5, "2030-02-03"), newIntent(fmt.Sprintf("00000000-0000-0000-0000-00000000010%d", i), ref))
			}(i)
		}
		wg.Wait()
		wins := 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, domain.ErrConflict):
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one booking to win, got %d", wins)
		}
	})

	t.Run("notification dedupe", func(t *testing.T) {
		n := domain.Notification{Type: domain.NotificationSystem, Title: "t", Message: "m", Priority: domain.PriorityLow, DedupeKey: "reminder:BK-1:2030-01-13", CreatedAt: time.Now().UTC()}
		first, created, err := repo.CreateNotification(ctx, n)
		if err != nil || !created {
			t.Fatalf("CreateNotification: created=%v err=%v", created, err)
		}
		again, created, err := repo.CreateNotification(ctx, n)
		if err != nil || created || again.ID != first.ID {
			t.Fatalf("expected existing row, got %+v created=%v err=%v", again, created, err)
		}
		read, err := repo.MarkNotificationRead(ctx, first.ID, time.Now())
		if err != nil || !read.IsRead || read.ReadAt == nil {
			t.Fatalf("MarkNotificationRead: %+v %v", read, err)
		}
		removed, err := repo.DeleteNotificationsBefore(ctx, time.Now().Add(time.Minute), true)
		if err != nil || removed != 1 {
			t.Fatalf("DeleteNotificationsBefore: removed=%d err=%v", removed, err)
		}
	})

	t.Run("admin optimistic update", func(t *testing.T) {
		a, err := repo.CreateAdmin(ctx, domain.Admin{Email: "ops@hotel.test", PasswordHash: "x", Name: "Ops", Role: domain.RoleAdmin, IsActive: true})
		if err != nil {
			t.Fatalf("CreateAdmin: %v", err)
		}
		if _, err := repo.CreateAdmin(ctx, domain.Admin{Email: "ops@hotel.test", PasswordHash: "x", Name: "Dup", Role: domain.RoleAdmin, IsActive: true}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected duplicate email conflict, got %v", err)
		}
		promoted := a
		promoted.Role = domain.RoleSuperAdmin
		if _, err := repo.UpdateAdmin(ctx, a, promoted); err != nil {
			t.Fatalf("UpdateAdmin: %v", err)
		}
		stale := a
		stale.IsActive = false
		if _, err := repo.UpdateAdmin(ctx, a, stale); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict on stale admin, got %v", err)
		}
		n, err := repo.CountActiveSuperAdmins(ctx)
		if err != nil || n != 1 {
			t.Fatalf("CountActiveSuperAdmins: %d %v", n, err)
		}
	})

	t.Run("concurrent demotions keep one super_admin", func(t *testing.T) {
		if _, err := repo.CreateAdmin(ctx, domain.Admin{Email: "night@hotel.test", PasswordHash: "x", Name: "Night", Role: domain.RoleSuperAdmin, IsActive: true}); err != nil {
			t.Fatalf("CreateAdmin: %v", err)
		}
		supers, err := repo.ListActiveAdmins(ctx)
		if err != nil {
			t.Fatalf("ListActiveAdmins: %v", err)
		}
		var snapshots []domain.Admin
		for _, a := range supers {
			if a.Role == domain.RoleSuperAdmin {
				snapshots = append(snapshots, a)
			}
		}
		if len(snapshots) != 2 {
			t.Fatalf("want 2 super admins before the race, got %d", len(snapshots))
		}

		var wg sync.WaitGroup
		errs := make([]error, len(snapshots))
		for i, cur := range snapshots {
			wg.Add(1)
			go func(i int, cur domain.Admin) {
				defer wg.Done()
				next := cur
				next.IsActive = false
				_, errs[i] = repo.UpdateAdmin(ctx, cur, next)
			}(i, cur)
		}
		wg.Wait()

		lost := 0
		for _, err := range errs {
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrConflict) {
				t.Fatalf("unexpected error: %v", err)
			}
			lost++
		}
		if lost != 1 {
			t.Fatalf("want exactly one rejected demotion, got errs=%v", errs)
		}
		n, err := repo.CountActiveSuperAdmins(ctx)
		if err != nil || n != 1 {
			t.Fatalf("CountActiveSuperAdmins: %d %v", n, err)
		}
	})
}
