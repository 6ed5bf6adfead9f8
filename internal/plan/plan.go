// Package plan persists the user's date → refuge selections between runs.
package plan

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

// ErrEmptyPlan is returned when a plan holds no days to check.
var ErrEmptyPlan = errors.New("plan has no days")

// Day is one night of the trip and the refuges worth checking for it.
type Day struct {
	Date    availability.Date
	Refuges []refuge.Refuge
}

// Store is the on-disk plan. Refuge names are stored alongside ids so the
// plan renders without a directory fetch.
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating plan dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS plan_days (
			date        TEXT NOT NULL,
			position    INTEGER NOT NULL,
			refuge_id   INTEGER NOT NULL,
			refuge_name TEXT NOT NULL,
			PRIMARY KEY (date, refuge_id)
		);
		CREATE INDEX IF NOT EXISTS idx_plan_days_date ON plan_days(date);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// SetDay replaces a day's refuges wholesale. An empty refuge list clears
// the day. Refuges are stored name-sorted and de-duplicated by id.
func (s *Store) SetDay(date availability.Date, refuges []refuge.Refuge) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM plan_days WHERE date = ?`, date.String()); err != nil {
		return fmt.Errorf("clearing day %s: %w", date, err)
	}

	ordered := make([]refuge.Refuge, 0, len(refuges))
	seen := make(map[int]bool, len(refuges))
	for _, r := range refuges {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	stmt, err := tx.Prepare(`
		INSERT INTO plan_days (date, position, refuge_id, refuge_name)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range ordered {
		if _, err := stmt.Exec(date.String(), i, r.ID, r.Name); err != nil {
			return fmt.Errorf("inserting refuge %d for %s: %w", r.ID, date, err)
		}
	}

	return tx.Commit()
}

// ClearDay removes a day from the plan.
func (s *Store) ClearDay(date availability.Date) error {
	return s.SetDay(date, nil)
}

// Days returns the plan ordered by date, refuges in stored order.
func (s *Store) Days() ([]Day, error) {
	rows, err := s.readDB.Query(`
		SELECT date, refuge_id, refuge_name
		FROM plan_days
		ORDER BY date, position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var (
			dateStr string
			id      int
			name    string
		)
		if err := rows.Scan(&dateStr, &id, &name); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		date, err := availability.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("plan row has bad date %q: %w", dateStr, err)
		}

		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, Day{Date: date})
		}
		last := &days[len(days)-1]
		last.Refuges = append(last.Refuges, refuge.Refuge{ID: id, Name: name})
	}
	return days, rows.Err()
}

// Queries flattens the plan into the ordered query sequence the poll loop
// evaluates each cycle.
func (s *Store) Queries() ([]availability.Query, error) {
	days, err := s.Days()
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, ErrEmptyPlan
	}

	var queries []availability.Query
	for _, d := range days {
		for _, r := range d.Refuges {
			queries = append(queries, availability.Query{RefugeID: r.ID, Date: d.Date})
		}
	}
	if len(queries) == 0 {
		return nil, ErrEmptyPlan
	}
	return queries, nil
}
