package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/tugas-backend/internal/model"
)

// RosterRepository reads class enrolment from the students table.
type RosterRepository struct {
	pool *pgxpool.Pool
}

// NewRosterRepository creates a new RosterRepository.
func NewRosterRepository(pool *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

var _ RosterProvider = (*RosterRepository)(nil)

// CountStudents returns the number of students enrolled in class/section.
func (r *RosterRepository) CountStudents(ctx context.Context, class, section string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE class = $1 AND section = $2`,
		class, section,
	).Scan(&n)
	return n, err
}

// Enroll inserts or refreshes a roster entry.
func (r *RosterRepository) Enroll(ctx context.Context, s *model.RosterStudent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (id, name, class, section)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, class = EXCLUDED.class, section = EXCLUDED.section
		 RETURNING created_at`,
		s.ID, s.Name, s.Class, s.Section,
	).Scan(&s.CreatedAt)
}
