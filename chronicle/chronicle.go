// Package chronicle keeps a sqlite ledger of every birth and death, so a
// finished run can be queried for lineages and causes of death.
package chronicle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by queries on a closed ledger.
var ErrClosed = errors.New("chronicle closed")

// Birth is one row of the births table. Parents are 0 for the first
// generation.
type Birth struct {
	ID      uint32
	Name    string
	Race    string
	Tick    int
	ParentA uint32
	ParentB uint32
}

// Death is one row of the deaths table.
type Death struct {
	ID         uint32
	Name       string
	Race       string
	Tick       int
	Age        int
	Energy     int
	Cause      string
	Meals      int
	FightsWon  int
	Children   int
	PeakEnergy int
}

// Survivor records the last creature alive and its innate prior.
type Survivor struct {
	ID     uint32
	Name   string
	Race   string
	Tick   int
	Fitrah map[string]int
}

type reqKind int

const (
	reqBirth reqKind = iota + 1
	reqDeath
	reqSurvivor
	reqSync
)

type req struct {
	kind     reqKind
	birth    Birth
	death    Death
	survivor Survivor
	done     chan struct{}
}

// Ledger writes rows from a single goroutine; Record* calls only enqueue.
type Ledger struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

// Open creates or opens the ledger at path.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("empty chronicle path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("chronicle pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("chronicle schema: %w", err)
	}

	l := &Ledger{db: db, ch: make(chan req, 65536)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	return l, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS births (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			race TEXT NOT NULL,
			tick INTEGER NOT NULL,
			parent_a INTEGER,
			parent_b INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_births_parent_a ON births(parent_a);`,
		`CREATE TABLE IF NOT EXISTS deaths (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			race TEXT NOT NULL,
			tick INTEGER NOT NULL,
			age INTEGER NOT NULL,
			energy INTEGER NOT NULL,
			cause TEXT NOT NULL,
			meals INTEGER NOT NULL,
			fights_won INTEGER NOT NULL,
			children INTEGER NOT NULL,
			peak_energy INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deaths_race_cause ON deaths(race, cause);`,
		`CREATE TABLE IF NOT EXISTS survivors (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			race TEXT NOT NULL,
			tick INTEGER NOT NULL,
			fitrah_json TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending writes and closes the database.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		if n := l.dropped.Load(); n > 0 {
			slog.Warn("chronicle_dropped_rows", "count", n)
		}
		err = l.db.Close()
	})
	return err
}

func (l *Ledger) enqueue(r req) {
	if l == nil || l.closed.Load() {
		return
	}
	select {
	case l.ch <- r:
	default:
		// Drop if the writer falls behind; telemetry.csv still has the aggregates.
		l.dropped.Add(1)
	}
}

// RecordBirth queues a birth row.
func (l *Ledger) RecordBirth(b Birth) { l.enqueue(req{kind: reqBirth, birth: b}) }

// RecordDeath queues a death row.
func (l *Ledger) RecordDeath(d Death) { l.enqueue(req{kind: reqDeath, death: d}) }

// RecordSurvivor queues the last-survivor row.
func (l *Ledger) RecordSurvivor(s Survivor) { l.enqueue(req{kind: reqSurvivor, survivor: s}) }

// Sync blocks until every row queued before the call is committed.
func (l *Ledger) Sync() error {
	if l == nil || l.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	l.ch <- req{kind: reqSync, done: done}
	<-done
	return nil
}

// CountDeaths returns the number of committed deaths of race, or of every
// race when race is empty.
func (l *Ledger) CountDeaths(race string) (int, error) {
	if l == nil || l.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	var err error
	if race == "" {
		err = l.db.QueryRow(`SELECT COUNT(*) FROM deaths`).Scan(&n)
	} else {
		err = l.db.QueryRow(`SELECT COUNT(*) FROM deaths WHERE race = ?`, race).Scan(&n)
	}
	return n, err
}

// CountBirths returns the number of committed births with the given first
// parent, or of all births when parent is 0.
func (l *Ledger) CountBirths(parent uint32) (int, error) {
	if l == nil || l.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	var err error
	if parent == 0 {
		err = l.db.QueryRow(`SELECT COUNT(*) FROM births`).Scan(&n)
	} else {
		err = l.db.QueryRow(`SELECT COUNT(*) FROM births WHERE parent_a = ? OR parent_b = ?`, parent, parent).Scan(&n)
	}
	return n, err
}

// DeathCauses returns death counts keyed by cause.
func (l *Ledger) DeathCauses() (map[string]int, error) {
	if l == nil || l.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := l.db.Query(`SELECT cause, COUNT(*) FROM deaths GROUP BY cause`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var cause string
		var n int
		if err := rows.Scan(&cause, &n); err != nil {
			return nil, err
		}
		out[cause] = n
	}
	return out, rows.Err()
}

func nullableID(id uint32) any {
	if id == 0 {
		return nil
	}
	return int64(id)
}

func (l *Ledger) loop() {
	ctx := context.Background()

	insertBirth, _ := l.db.Prepare(`INSERT OR REPLACE INTO births(id,name,race,tick,parent_a,parent_b) VALUES(?,?,?,?,?,?)`)
	insertDeath, _ := l.db.Prepare(`INSERT OR REPLACE INTO deaths(id,name,race,tick,age,energy,cause,meals,fights_won,children,peak_energy) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSurvivor, _ := l.db.Prepare(`INSERT OR REPLACE INTO survivors(id,name,race,tick,fitrah_json) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertBirth, insertDeath, insertSurvivor} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			slog.Error("chronicle_begin_failed", "error", err)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			slog.Error("chronicle_commit_failed", "error", err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			slog.Error("chronicle_write_failed", "error", err)
			return
		}
		opCount++
	}

	for r := range l.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}

		begin()
		switch r.kind {
		case reqBirth:
			b := r.birth
			exec(insertBirth, int64(b.ID), b.Name, b.Race, b.Tick, nullableID(b.ParentA), nullableID(b.ParentB))
		case reqDeath:
			d := r.death
			exec(insertDeath, int64(d.ID), d.Name, d.Race, d.Tick, d.Age, d.Energy, d.Cause,
				d.Meals, d.FightsWon, d.Children, d.PeakEnergy)
		case reqSurvivor:
			s := r.survivor
			fitrah, _ := json.Marshal(s.Fitrah)
			exec(insertSurvivor, int64(s.ID), s.Name, s.Race, s.Tick, string(fitrah))
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
