// Package store is the PostgreSQL persistence layer. It owns the SQL; the
// rest of the application works with the returned structs and never sees
// pgx directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("map changed concurrently")
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

// LearningMap couples the SVG markup with its graph record. Version counts
// saves and backs optimistic concurrency on updates.
type LearningMap struct {
	ID        string
	CourseID  string
	Name      string
	OwnerID   string
	SVG       string
	Record    []byte
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CourseModule mirrors the course-level activity a place can link to.
type CourseModule struct {
	ID                string
	CourseID          string
	Name              string
	ViewURL           string
	Visible           bool
	StealthReachable  bool
	Available         bool
	PassGradeRequired bool
}

// Completion is one member's state for one module. CompletedAt is nil when
// the source never recorded a timestamp for the transition.
type Completion struct {
	ModuleID    string
	MemberID    string
	State       int16
	CompletedAt *time.Time
}

func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password, display_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, email, password, display_name, created_at`,
		u.ID, u.Email, u.Password, u.DisplayName)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at
		 FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at
		 FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateMap(ctx context.Context, m LearningMap) (LearningMap, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO learning_maps (id, course_id, name, owner_id, svg, record, version)
		 VALUES ($1, $2, $3, $4, $5, $6, 1)
		 RETURNING id, course_id, name, owner_id, svg, record, version, created_at, updated_at`,
		m.ID, m.CourseID, m.Name, m.OwnerID, m.SVG, m.Record)
	return scanMap(row)
}

func (s *Store) GetMap(ctx context.Context, id string) (LearningMap, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, course_id, name, owner_id, svg, record, version, created_at, updated_at
		 FROM learning_maps WHERE id = $1`, id)
	return scanMap(row)
}

func (s *Store) ListMapsForOwner(ctx context.Context, ownerID string) ([]LearningMap, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, name, owner_id, svg, record, version, created_at, updated_at
		 FROM learning_maps WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var maps []LearningMap
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

// SaveMap persists new markup and record contents. The caller supplies the
// version it loaded; a stale version means someone saved in between and the
// update is refused.
func (s *Store) SaveMap(ctx context.Context, id, svg string, record []byte, loadedVersion int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE learning_maps
		 SET svg = $2, record = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $4`,
		id, svg, record, loadedVersion)
	if err != nil {
		return 0, fmt.Errorf("save map: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionConflict
	}
	return loadedVersion + 1, nil
}

func (s *Store) DeleteMap(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM learning_maps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete map: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMap(row pgx.Row) (LearningMap, error) {
	var m LearningMap
	err := row.Scan(&m.ID, &m.CourseID, &m.Name, &m.OwnerID, &m.SVG, &m.Record,
		&m.Version, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LearningMap{}, ErrNotFound
	}
	if err != nil {
		return LearningMap{}, fmt.Errorf("scan map: %w", err)
	}
	return m, nil
}

func (s *Store) UpsertModule(ctx context.Context, m CourseModule) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO course_modules (id, course_id, name, view_url, visible, stealth_reachable, available, pass_grade_required)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET name = $3, view_url = $4, visible = $5, stealth_reachable = $6, available = $7, pass_grade_required = $8`,
		m.ID, m.CourseID, m.Name, m.ViewURL, m.Visible, m.StealthReachable, m.Available, m.PassGradeRequired)
	if err != nil {
		return fmt.Errorf("upsert module: %w", err)
	}
	return nil
}

func (s *Store) ListModules(ctx context.Context, courseID string) ([]CourseModule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, name, view_url, visible, stealth_reachable, available, pass_grade_required
		 FROM course_modules WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var mods []CourseModule
	for rows.Next() {
		var m CourseModule
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Name, &m.ViewURL,
			&m.Visible, &m.StealthReachable, &m.Available, &m.PassGradeRequired); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func (s *Store) SetCompletion(ctx context.Context, c Completion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO completions (module_id, member_id, state, completed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (module_id, member_id) DO UPDATE
		 SET state = $3, completed_at = $4`,
		c.ModuleID, c.MemberID, c.State, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("set completion: %w", err)
	}
	return nil
}

// ListCompletions returns all recorded states for the course's modules.
func (s *Store) ListCompletions(ctx context.Context, courseID string) ([]Completion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.module_id, c.member_id, c.state, c.completed_at
		 FROM completions c
		 JOIN course_modules m ON m.id = c.module_id
		 WHERE m.course_id = $1`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.ModuleID, &c.MemberID, &c.State, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddGroupMember(ctx context.Context, groupID, memberID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, member_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, groupID, memberID)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// MembersOf satisfies course.GroupResolver.
func (s *Store) MembersOf(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT member_id FROM group_members WHERE group_id = $1 ORDER BY member_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}
