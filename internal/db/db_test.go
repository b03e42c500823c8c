package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	d, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to db: %v", err)
	}
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestInsertReadingRoundTrip(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Microsecond)

	stored, err := d.InsertReading(ctx, 75.5, 310.0, ts)
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if stored.ID == 0 {
		t.Fatal("expected generated id")
	}

	fresh, err := d.GetReading(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetReading: %v", err)
	}
	if fresh.ID != stored.ID || !fresh.Timestamp.Equal(stored.Timestamp) ||
		fresh.Temperature != 75.5 || fresh.Gas != 310.0 {
		t.Fatalf("fresh read %+v does not match stored %+v", fresh, stored)
	}

	next, err := d.InsertReading(ctx, 20, 300, ts)
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if next.ID <= stored.ID {
		t.Fatalf("ids not increasing: %d then %d", stored.ID, next.ID)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var id int64
	err := d.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO sensor_data (temperature, gas) VALUES (1, 2) RETURNING id`)
		if err := row.Scan(&id); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := d.GetReading(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back row is visible: %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"

	if _, err := d.CreateUser(ctx, email, "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := d.CreateUser(ctx, email, "hash"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	recipients, err := d.ListActiveRecipients(ctx)
	if err != nil {
		t.Fatalf("ListActiveRecipients: %v", err)
	}
	found := false
	for _, r := range recipients {
		if r == email {
			found = true
		}
	}
	if !found {
		t.Fatalf("%s missing from active recipients", email)
	}
}
