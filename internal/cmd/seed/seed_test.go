package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	attendancesqlite "github.com/aulatap/aulatap/internal/services/attendance/storage/sqlite"
)

const rosterFixture = `{
  "instructors": [
    {"id": "inst-1", "full_name": "M. Rivera", "email": "rivera@school.test"}
  ],
  "subjects": [
    {"id": "subj-1", "name": "Algebra I", "group_label": "A", "instructor_id": "inst-1"}
  ],
  "schedules": [
    {"id": "sched-1", "weekday": 1, "starts_at": "10:00", "ends_at": "11:00"}
  ],
  "scheduled_classes": [
    {"id": "class-1", "subject_id": "subj-1", "schedule_id": "sched-1"}
  ],
  "students": [
    {"id": "stu-1", "full_name": "Ana Torres", "card_code": "CARD-1"}
  ],
  "enrollments": [
    {"subject_id": "subj-1", "student_id": "stu-1"}
  ]
}`

func TestLoadRosterAndApply(t *testing.T) {
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.json")
	if err := os.WriteFile(rosterPath, []byte(rosterFixture), 0o644); err != nil {
		t.Fatalf("write roster fixture: %v", err)
	}

	roster, err := LoadRoster(rosterPath)
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(roster.Students) != 1 || roster.Students[0].CardCode != "CARD-1" {
		t.Fatalf("unexpected roster: %+v", roster)
	}

	store, err := attendancesqlite.Open(filepath.Join(dir, "attendance.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := Apply(ctx, store, roster); err != nil {
		t.Fatalf("apply roster: %v", err)
	}

	subject, err := store.GetSubject(ctx, "subj-1")
	if err != nil {
		t.Fatalf("get subject: %v", err)
	}
	if subject.GroupLabel != "A" {
		t.Fatalf("subject group label = %q, want %q", subject.GroupLabel, "A")
	}

	student, err := store.GetStudentByCardCode(ctx, "CARD-1")
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if student.ID != "stu-1" {
		t.Fatalf("student id = %q, want %q", student.ID, "stu-1")
	}
	enrolled, err := store.HasEnrollment(ctx, "subj-1", "stu-1")
	if err != nil {
		t.Fatalf("check enrollment: %v", err)
	}
	if !enrolled {
		t.Fatal("expected stu-1 to be enrolled")
	}

	// Reseeding is an upsert, not an error.
	if err := Apply(ctx, store, roster); err != nil {
		t.Fatalf("reapply roster: %v", err)
	}
}

func TestLoadRosterRejectsMalformedFile(t *testing.T) {
	rosterPath := filepath.Join(t.TempDir(), "roster.json")
	if err := os.WriteFile(rosterPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write roster fixture: %v", err)
	}
	if _, err := LoadRoster(rosterPath); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected read error")
	}
}
