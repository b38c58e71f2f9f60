// Package seed loads a roster fixture file into the attendance SQLite
// database so a fresh deployment has instructors, subjects, schedules,
// and enrolled students to run sessions against.
package seed

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	entrypoint "github.com/aulatap/aulatap/internal/platform/cmd"
	"github.com/aulatap/aulatap/internal/services/attendance/storage"
	attendancesqlite "github.com/aulatap/aulatap/internal/services/attendance/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath     string `env:"AULATAP_ATTENDANCE_DB_PATH" envDefault:"data/attendance.db"`
	RosterPath string `env:"AULATAP_SEED_ROSTER_PATH" envDefault:"roster.json"`
}

// Roster is the fixture document format accepted by the seed command.
type Roster struct {
	Instructors      []Instructor     `json:"instructors"`
	Subjects         []Subject        `json:"subjects"`
	Schedules        []Schedule       `json:"schedules"`
	ScheduledClasses []ScheduledClass `json:"scheduled_classes"`
	Students         []Student        `json:"students"`
	Enrollments      []Enrollment     `json:"enrollments"`
}

// Instructor is one instructor row in the fixture document.
type Instructor struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Subject is one subject row in the fixture document.
type Subject struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	GroupLabel   string `json:"group_label"`
	InstructorID string `json:"instructor_id"`
}

// Schedule is one timetable slot in the fixture document.
type Schedule struct {
	ID       string `json:"id"`
	Weekday  int    `json:"weekday"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// ScheduledClass binds a subject to a schedule slot in the fixture
// document.
type ScheduledClass struct {
	ID         string `json:"id"`
	SubjectID  string `json:"subject_id"`
	ScheduleID string `json:"schedule_id"`
}

// Student is one student row in the fixture document.
type Student struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	CardCode string `json:"card_code"`
}

// Enrollment binds one student to one subject in the fixture document.
type Enrollment struct {
	SubjectID string `json:"subject_id"`
	StudentID string `json:"student_id"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The attendance SQLite database path")
	fs.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "Path to the roster fixture JSON file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the roster fixture into the attendance database. Rows are
// upserted, so reseeding an existing database is safe.
func Run(ctx context.Context, cfg Config) error {
	roster, err := LoadRoster(cfg.RosterPath)
	if err != nil {
		return err
	}

	store, err := attendancesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open attendance sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close attendance sqlite store: %v", closeErr)
		}
	}()

	return Apply(ctx, store, roster)
}

// LoadRoster reads and decodes one roster fixture file.
func LoadRoster(path string) (Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file: %w", err)
	}
	var roster Roster
	if err := json.Unmarshal(raw, &roster); err != nil {
		return Roster{}, fmt.Errorf("decode roster file: %w", err)
	}
	return roster, nil
}

// Apply writes every roster row through the store. Referenced rows are
// written before their dependents so foreign keys hold.
func Apply(ctx context.Context, store storage.RosterStore, roster Roster) error {
	for _, instructor := range roster.Instructors {
		if err := store.PutInstructor(ctx, storage.InstructorRecord{
			ID:       instructor.ID,
			FullName: instructor.FullName,
			Email:    instructor.Email,
		}); err != nil {
			return fmt.Errorf("seed instructor %s: %w", instructor.ID, err)
		}
	}
	for _, subject := range roster.Subjects {
		if err := store.PutSubject(ctx, storage.SubjectRecord{
			ID:           subject.ID,
			Name:         subject.Name,
			GroupLabel:   subject.GroupLabel,
			InstructorID: subject.InstructorID,
		}); err != nil {
			return fmt.Errorf("seed subject %s: %w", subject.ID, err)
		}
	}
	for _, schedule := range roster.Schedules {
		if err := store.PutSchedule(ctx, storage.ScheduleRecord{
			ID:       schedule.ID,
			Weekday:  schedule.Weekday,
			StartsAt: schedule.StartsAt,
			EndsAt:   schedule.EndsAt,
		}); err != nil {
			return fmt.Errorf("seed schedule %s: %w", schedule.ID, err)
		}
	}
	for _, class := range roster.ScheduledClasses {
		if err := store.PutScheduledClass(ctx, storage.ScheduledClassRecord{
			ID:         class.ID,
			SubjectID:  class.SubjectID,
			ScheduleID: class.ScheduleID,
		}); err != nil {
			return fmt.Errorf("seed scheduled class %s: %w", class.ID, err)
		}
	}
	for _, student := range roster.Students {
		if err := store.PutStudent(ctx, storage.StudentRecord{
			ID:       student.ID,
			FullName: student.FullName,
			CardCode: student.CardCode,
		}); err != nil {
			return fmt.Errorf("seed student %s: %w", student.ID, err)
		}
	}
	for _, enrollment := range roster.Enrollments {
		if err := store.PutEnrollment(ctx, enrollment.SubjectID, enrollment.StudentID); err != nil {
			return fmt.Errorf("seed enrollment %s/%s: %w", enrollment.SubjectID, enrollment.StudentID, err)
		}
	}

	log.Printf("seeded %d instructors, %d subjects, %d schedules, %d classes, %d students, %d enrollments",
		len(roster.Instructors), len(roster.Subjects), len(roster.Schedules),
		len(roster.ScheduledClasses), len(roster.Students), len(roster.Enrollments))
	return nil
}
