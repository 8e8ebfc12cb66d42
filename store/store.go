package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-tubestitch/tube"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run ID is not in the database
var ErrRunNotFound = errors.New("run not found")

// Run is a single processed video
type Run struct {
	ID        uuid.UUID
	VideoID   string
	CreatedAt time.Time
}

// Store persists runs and their finished tracks in a SQLite database
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the SQLite database at path and migrates it to the
// latest schema.  A nil logger disables logging
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {

	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, log: log}

	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// pragmas are applied by the driver to every pooled connection
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// dsn returns the connection string for the database file at path.  Write
// transactions take the lock on BEGIN so concurrent writers wait on the busy
// timeout instead of failing
func dsn(path string) string {

	var b strings.Builder

	b.WriteString("file:")
	b.WriteString(path)
	b.WriteString("?_txlock=immediate")

	for _, p := range pragmas {
		b.WriteString("&_pragma=")
		b.WriteString(p)
	}

	return b.String()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new run for the video and returns its ID
func (s *Store) StartRun(ctx context.Context, videoID string) (uuid.UUID, error) {

	id := uuid.New()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, video_id, created_at) VALUES (?, ?, ?)`,
		id.String(), videoID, time.Now().UnixNano(),
	)

	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	s.log.Debug("run started", zap.String("run", id.String()), zap.String("video", videoID))

	return id, nil
}

// GetRun returns the run with the given ID
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (Run, error) {

	var (
		videoID   string
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT video_id, created_at FROM runs WHERE run_id = ?`, runID.String(),
	).Scan(&videoID, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}

	return Run{
		ID:        runID,
		VideoID:   videoID,
		CreatedAt: time.Unix(0, createdAt),
	}, nil
}

// SaveTracks stores the finished tracks of a run in a single transaction.
// Empty tracks are skipped
func (s *Store) SaveTracks(ctx context.Context, runID uuid.UUID, tracks tube.TrackSet) error {

	if len(tracks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	trackStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tracks (run_id, track_id, class_id, first_frame, last_frame, score)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}

	defer trackStmt.Close()

	stateStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO track_states (run_id, track_id, frame_id, min_x, min_y, max_x, max_y, class_id, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare state insert: %w", err)
	}

	defer stateStmt.Close()

	run := runID.String()
	saved := 0

	for _, track := range tracks {

		class, ok := track.Class()
		if !ok {
			continue
		}

		_, err := trackStmt.ExecContext(ctx, run, track.ID, class,
			track.FirstFrame(), track.LastFrame(), track.Score())
		if err != nil {
			return fmt.Errorf("failed to insert track %d: %w", track.ID, err)
		}

		for _, st := range track.States() {
			box := st.Detection.Box

			_, err := stateStmt.ExecContext(ctx, run, track.ID, st.FrameID,
				box.MinX, box.MinY, box.MaxX, box.MaxY,
				st.Detection.ClassID, st.Detection.Confidence)
			if err != nil {
				return fmt.Errorf("failed to insert state %d of track %d: %w",
					st.FrameID, track.ID, err)
			}
		}

		saved++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracks: %w", err)
	}

	s.log.Debug("tracks saved", zap.String("run", run), zap.Int("tracks", saved))

	return nil
}

// LoadTracks returns the tracks of a run ordered by track ID, the states of
// each track are in frame order
func (s *Store) LoadTracks(ctx context.Context, runID uuid.UUID) (tube.TrackSet, error) {

	rows, err := s.db.QueryContext(ctx,
		`SELECT track_id, frame_id, min_x, min_y, max_x, max_y, class_id, confidence
		 FROM track_states
		 WHERE run_id = ?
		 ORDER BY track_id, frame_id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query track states: %w", err)
	}

	defer rows.Close()

	var (
		tracks  tube.TrackSet
		current *tube.Track
	)

	for rows.Next() {

		var (
			trackID int64
			st      tube.TrackState
			box     tube.BoundingBox
		)

		if err := rows.Scan(&trackID, &st.FrameID, &box.MinX, &box.MinY,
			&box.MaxX, &box.MaxY, &st.Detection.ClassID, &st.Detection.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan track state: %w", err)
		}

		st.Detection.Box = box

		if current == nil || current.ID != trackID {
			current = tube.NewTrack()
			current.ID = trackID
			tracks = append(tracks, current)
		}

		current.Append(st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track states: %w", err)
	}

	return tracks, nil
}

// CountTracks returns the number of tracks stored for a run
func (s *Store) CountTracks(ctx context.Context, runID uuid.UUID) (int, error) {

	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracks WHERE run_id = ?`, runID.String(),
	).Scan(&n)

	if err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	return n, nil
}
