package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notenpfad/notenpfad/internal/db"
	"github.com/notenpfad/notenpfad/internal/gradecalc"
)

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(dbh *sql.DB) *SQLStore {
	return &SQLStore{db: dbh, now: time.Now}
}

func newID() string { return uuid.NewString() }

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// ---- users ----

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return User{}, errors.New("username required")
	}
	if _, err := s.GetUserByUsername(ctx, u.Username); err == nil {
		return User{}, fmt.Errorf("user %q: %w", u.Username, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Role == "" {
		u.Role = RoleParent
	}
	u.CreatedAt = s.now().Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id,username,password_hash,role,parent_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.PasswordHash, string(u.Role), nullable(u.ParentID), u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

const userCols = `id,username,password_hash,role,parent_id,created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var role string
	var parent sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &parent, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.ParentID = parent.String
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		return User{}, notFound(err, "user")
	}
	return u, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
	if err != nil {
		return User{}, notFound(err, "user")
	}
	return u, nil
}

func (s *SQLStore) SetPassword(ctx context.Context, userID, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, userID)
	if err != nil {
		return err
	}
	return affected(res, "user")
}

func (s *SQLStore) ListChildren(ctx context.Context, parentID string) ([]Child, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id,u.username,u.password_hash,u.role,u.parent_id,u.created_at,
		       st.id,st.name,st.target_school
		FROM users u LEFT JOIN students st ON st.user_id = u.id
		WHERE u.parent_id=$1
		ORDER BY u.username`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Child{}
	for rows.Next() {
		var c Child
		var role string
		var parent, sid, sname, starget sql.NullString
		if err := rows.Scan(&c.ID, &c.Username, &c.PasswordHash, &role, &parent, &c.CreatedAt,
			&sid, &sname, &starget); err != nil {
			return nil, err
		}
		c.Role = Role(role)
		c.ParentID = parent.String
		if sid.Valid {
			c.StudentProfile = &Student{ID: sid.String, UserID: c.ID, Name: sname.String, TargetSchool: starget.String}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM grades WHERE student_id IN (SELECT id FROM students WHERE user_id=$1)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE user_id=$1`, id); err != nil {
			return err
		}
		// children keep existing but lose their parent link
		if _, err := tx.ExecContext(ctx, `UPDATE users SET parent_id=NULL WHERE parent_id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE subjects SET owner_id=NULL WHERE owner_id=$1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return affected(res, "user")
	})
}

// ---- students ----

func (s *SQLStore) CreateStudent(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = newID()
	}
	if st.TargetSchool == "" {
		st.TargetSchool = "Gymnasium"
	}
	if _, err := s.GetStudentByUser(ctx, st.UserID); err == nil {
		return Student{}, fmt.Errorf("student profile for %s: %w", st.UserID, ErrConflict)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO students (id,user_id,name,target_school) VALUES ($1,$2,$3,$4)`,
		st.ID, st.UserID, st.Name, st.TargetSchool)
	if err != nil {
		return Student{}, err
	}
	return st, nil
}

func (s *SQLStore) GetStudent(ctx context.Context, id string) (Student, error) {
	var st Student
	err := s.db.QueryRowContext(ctx, `SELECT id,user_id,name,target_school FROM students WHERE id=$1`, id).
		Scan(&st.ID, &st.UserID, &st.Name, &st.TargetSchool)
	if err != nil {
		return Student{}, notFound(err, "student")
	}
	return st, nil
}

func (s *SQLStore) GetStudentByUser(ctx context.Context, userID string) (Student, error) {
	var st Student
	err := s.db.QueryRowContext(ctx, `SELECT id,user_id,name,target_school FROM students WHERE user_id=$1`, userID).
		Scan(&st.ID, &st.UserID, &st.Name, &st.TargetSchool)
	if err != nil {
		return Student{}, notFound(err, "student")
	}
	return st, nil
}

// ---- subjects ----

func (s *SQLStore) CreateSubject(ctx context.Context, sub Subject) (Subject, error) {
	if sub.ID == "" {
		sub.ID = newID()
	}
	if sub.Weighting == 0 {
		sub.Weighting = 1.0
	}
	// weights are looked up by subject name, so names are unique per owner
	if taken, err := s.subjectNameTaken(ctx, sub.OwnerID, sub.Name); err != nil {
		return Subject{}, err
	} else if taken {
		return Subject{}, fmt.Errorf("subject %q already exists: %w", sub.Name, ErrConflict)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO subjects (id,owner_id,name,weighting) VALUES ($1,$2,$3,$4)`,
		sub.ID, nullable(sub.OwnerID), sub.Name, sub.Weighting)
	if err != nil {
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) subjectNameTaken(ctx context.Context, ownerID, name string) (bool, error) {
	q := `SELECT COUNT(*) FROM subjects WHERE owner_id=$1 AND name=$2`
	args := []any{ownerID, name}
	if ownerID == "" {
		q = `SELECT COUNT(*) FROM subjects WHERE owner_id IS NULL AND name=$1`
		args = args[1:]
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanSubject(row interface{ Scan(...any) error }) (Subject, error) {
	var sub Subject
	var owner sql.NullString
	if err := row.Scan(&sub.ID, &owner, &sub.Name, &sub.Weighting); err != nil {
		return Subject{}, err
	}
	sub.OwnerID = owner.String
	return sub, nil
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, error) {
	sub, err := scanSubject(s.db.QueryRowContext(ctx, `SELECT id,owner_id,name,weighting FROM subjects WHERE id=$1`, id))
	if err != nil {
		return Subject{}, notFound(err, "subject")
	}
	return sub, nil
}

func (s *SQLStore) ListSubjects(ctx context.Context, opts ListOpts) ([]Subject, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	var (
		rows *sql.Rows
		err  error
	)
	if opts.OwnerID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id,owner_id,name,weighting FROM subjects
			ORDER BY name, id LIMIT $1 OFFSET $2`, opts.Limit, opts.Offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id,owner_id,name,weighting FROM subjects
			WHERE owner_id=$1 ORDER BY name, id LIMIT $2 OFFSET $3`, opts.OwnerID, opts.Limit, opts.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Subject{}
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM grades WHERE subject_id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE subject_id=$1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
		if err != nil {
			return err
		}
		return affected(res, "subject")
	})
}

func (s *SQLStore) SubjectStudents(ctx context.Context, subjectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT student_id FROM grades WHERE subject_id=$1 ORDER BY student_id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- grades ----

func (s *SQLStore) CreateGrade(ctx context.Context, g Grade) (Grade, error) {
	if g.ID == "" {
		g.ID = newID()
	}
	if g.Type == "" {
		g.Type = "Exam"
	}
	now := s.now()
	if g.Date == "" {
		g.Date = Today(now)
	}
	g.CreatedAt = now.UnixNano()
	_, err := s.db.ExecContext(ctx, `INSERT INTO grades (id,student_id,subject_id,value,type,date,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		g.ID, g.StudentID, g.SubjectID, g.Value, g.Type, g.Date, g.CreatedAt)
	if err != nil {
		return Grade{}, err
	}
	return g, nil
}

const gradeCols = `id,student_id,subject_id,value,type,date,created_at`

func scanGrade(row interface{ Scan(...any) error }) (Grade, error) {
	var g Grade
	err := row.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.Value, &g.Type, &g.Date, &g.CreatedAt)
	return g, err
}

func (s *SQLStore) GetGrade(ctx context.Context, id string) (Grade, error) {
	g, err := scanGrade(s.db.QueryRowContext(ctx, `SELECT `+gradeCols+` FROM grades WHERE id=$1`, id))
	if err != nil {
		return Grade{}, notFound(err, "grade")
	}
	return g, nil
}

func (s *SQLStore) ListGrades(ctx context.Context, studentID string) ([]Grade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gradeCols+` FROM grades
		WHERE student_id=$1 ORDER BY date, created_at`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Grade{}
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteGrade(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grades WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return affected(res, "grade")
}

// ---- topics ----

func (s *SQLStore) CreateTopic(ctx context.Context, t Topic) (Topic, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO topics (id,subject_id,name,is_completed) VALUES ($1,$2,$3,$4)`,
		t.ID, t.SubjectID, t.Name, t.Completed)
	if err != nil {
		return Topic{}, err
	}
	return t, nil
}

func (s *SQLStore) GetTopic(ctx context.Context, id string) (Topic, error) {
	var t Topic
	err := s.db.QueryRowContext(ctx, `SELECT id,subject_id,name,is_completed FROM topics WHERE id=$1`, id).
		Scan(&t.ID, &t.SubjectID, &t.Name, &t.Completed)
	if err != nil {
		return Topic{}, notFound(err, "topic")
	}
	return t, nil
}

func (s *SQLStore) ListTopics(ctx context.Context, subjectID string) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,subject_id,name,is_completed FROM topics
		WHERE subject_id=$1 ORDER BY name, id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Topic{}
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Completed); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) ToggleTopic(ctx context.Context, id string) (Topic, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE topics SET is_completed = NOT is_completed WHERE id=$1`, id)
	if err != nil {
		return Topic{}, err
	}
	if err := affected(res, "topic"); err != nil {
		return Topic{}, err
	}
	return s.GetTopic(ctx, id)
}

// ---- aggregates ----

func (s *SQLStore) StudentRecords(ctx context.Context, studentID string) (Records, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.value, g.type, sub.name, sub.weighting
		FROM grades g JOIN subjects sub ON sub.id = g.subject_id
		WHERE g.student_id=$1
		ORDER BY g.date, g.created_at`, studentID)
	if err != nil {
		return Records{}, err
	}
	defer rows.Close()

	out := Records{Grades: []gradecalc.Record{}, Weights: map[string]float64{}}
	for rows.Next() {
		var r gradecalc.Record
		var w float64
		if err := rows.Scan(&r.Value, &r.Label, &r.Subject, &w); err != nil {
			return Records{}, err
		}
		out.Grades = append(out.Grades, r)
		out.Weights[r.Subject] = w
	}
	return out, rows.Err()
}

func (s *SQLStore) ResetStudent(ctx context.Context, studentID, ownerID string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM grades WHERE student_id=$1`, studentID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE topics SET is_completed=$1
			WHERE subject_id IN (SELECT id FROM subjects WHERE owner_id=$2)`, false, ownerID)
		return err
	})
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
