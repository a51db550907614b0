package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Hasher turns a plaintext password into a stored hash.
type Hasher func(password string) (string, error)

type SubjectSeed struct {
	Name   string
	Topics []string
}

// DefaultSubjects are created for the admin account and for every guest.
var DefaultSubjects = []SubjectSeed{
	{Name: "Mathematik", Topics: []string{"Grundoperationen", "Geometrie", "Textaufgaben"}},
	{Name: "Deutsch", Topics: []string{"Grammatik", "Rechtschreibung", "Textverständnis"}},
}

type gradeSeed struct {
	Subject string
	Type    string
	Value   float64
}

var guestGrades = []gradeSeed{
	{"Mathematik", "Vornote", 5.0},
	{"Mathematik", "Prüfung", 4.5},
	{"Deutsch", "Vornote", 5.5},
	{"Deutsch", "Aufsatz", 4.5},
	{"Deutsch", "Sprachbetrachtung", 5.0},
}

const (
	AdminUsername   = "admin"
	StudentUsername = "sole"
	StudentName     = "Sole Iovanna"
	DefaultTarget   = "Gymnasium"
)

type Seeder struct {
	Store Store
	Hash  Hasher
	Log   *slog.Logger
	Now   func() time.Time
}

func (sd Seeder) logger() *slog.Logger {
	if sd.Log == nil {
		return slog.Default()
	}
	return sd.Log
}

func (sd Seeder) now() time.Time {
	if sd.Now == nil {
		return time.Now()
	}
	return sd.Now()
}

// EnsureDefaults creates the admin account, the demo student and the default
// subjects with their topics. Existing rows are left untouched.
func (sd Seeder) EnsureDefaults(ctx context.Context, adminPassword, studentPassword string) error {
	log := sd.logger()

	admin, created, err := sd.ensureUser(ctx, User{Username: AdminUsername, Role: RoleAdmin}, adminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info("seed user", "username", admin.Username, "created", created)

	sole, created, err := sd.ensureUser(ctx, User{Username: StudentUsername, Role: RoleStudent, ParentID: admin.ID}, studentPassword)
	if err != nil {
		return fmt.Errorf("seed student: %w", err)
	}
	log.Info("seed user", "username", sole.Username, "created", created)

	if _, err := sd.Store.GetStudentByUser(ctx, sole.ID); errors.Is(err, ErrNotFound) {
		if _, err := sd.Store.CreateStudent(ctx, Student{UserID: sole.ID, Name: StudentName, TargetSchool: DefaultTarget}); err != nil {
			return fmt.Errorf("seed student profile: %w", err)
		}
		log.Info("seed student profile", "name", StudentName)
	} else if err != nil {
		return err
	}

	if _, err := sd.ensureSubjects(ctx, admin.ID); err != nil {
		return fmt.Errorf("seed subjects: %w", err)
	}
	return nil
}

func (sd Seeder) ensureUser(ctx context.Context, u User, password string) (User, bool, error) {
	existing, err := sd.Store.GetUserByUsername(ctx, u.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, false, err
	}
	u.PasswordHash, err = sd.Hash(password)
	if err != nil {
		return User{}, false, err
	}
	u, err = sd.Store.CreateUser(ctx, u)
	return u, err == nil, err
}

// ensureSubjects makes sure ownerID has every default subject and that each
// subject without topics gets the default ones. It returns subject IDs by name.
func (sd Seeder) ensureSubjects(ctx context.Context, ownerID string) (map[string]string, error) {
	have, err := sd.Store.ListSubjects(ctx, ListOpts{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(have))
	for _, s := range have {
		ids[s.Name] = s.ID
	}
	for _, seed := range DefaultSubjects {
		id, ok := ids[seed.Name]
		if !ok {
			sub, err := sd.Store.CreateSubject(ctx, Subject{OwnerID: ownerID, Name: seed.Name, Weighting: 1.0})
			if err != nil {
				return nil, err
			}
			id = sub.ID
			ids[seed.Name] = id
			sd.logger().Info("seed subject", "name", seed.Name, "owner", ownerID)
		}
		topics, err := sd.Store.ListTopics(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(topics) > 0 {
			continue
		}
		for _, name := range seed.Topics {
			if _, err := sd.Store.CreateTopic(ctx, Topic{SubjectID: id, Name: name}); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

// Guest is a throwaway parent account with one child and sample data.
type Guest struct {
	Parent  User
	Child   User
	Student Student
}

// CreateGuest provisions a fresh guest_<suffix> parent with its own subjects,
// topics and a child that already has a few grades.
func (sd Seeder) CreateGuest(ctx context.Context) (Guest, error) {
	now := sd.now()
	sfx := strconv.FormatInt(now.UnixNano(), 36)
	if len(sfx) > 8 {
		sfx = sfx[len(sfx)-8:]
	}

	parent, err := sd.Store.CreateUser(ctx, User{Username: "guest_" + sfx, Role: RoleParent})
	if err != nil {
		return Guest{}, fmt.Errorf("guest parent: %w", err)
	}
	child, err := sd.Store.CreateUser(ctx, User{Username: "guest_" + sfx + "_kind", Role: RoleStudent, ParentID: parent.ID})
	if err != nil {
		return Guest{}, fmt.Errorf("guest child: %w", err)
	}
	st, err := sd.Store.CreateStudent(ctx, Student{UserID: child.ID, Name: "Gast Kind", TargetSchool: DefaultTarget})
	if err != nil {
		return Guest{}, fmt.Errorf("guest profile: %w", err)
	}
	ids, err := sd.ensureSubjects(ctx, parent.ID)
	if err != nil {
		return Guest{}, fmt.Errorf("guest subjects: %w", err)
	}
	for _, g := range guestGrades {
		_, err := sd.Store.CreateGrade(ctx, Grade{
			StudentID: st.ID,
			SubjectID: ids[g.Subject],
			Value:     g.Value,
			Type:      g.Type,
			Date:      Today(now),
		})
		if err != nil {
			return Guest{}, fmt.Errorf("guest grades: %w", err)
		}
	}
	sd.logger().Info("guest created", "username", parent.Username)
	return Guest{Parent: parent, Child: child, Student: st}, nil
}
