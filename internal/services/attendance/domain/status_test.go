package domain

import "testing"

func TestSessionStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to SessionStatus }{
		{SessionStatusOpen, SessionStatusValidationOpen},
		{SessionStatusOpen, SessionStatusClosed},
		{SessionStatusValidationOpen, SessionStatusValidationClosed},
		{SessionStatusValidationOpen, SessionStatusClosed},
		{SessionStatusValidationClosed, SessionStatusClosed},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Fatalf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to SessionStatus }{
		{SessionStatusOpen, SessionStatusValidationClosed},
		{SessionStatusValidationOpen, SessionStatusOpen},
		{SessionStatusValidationClosed, SessionStatusValidationOpen},
		{SessionStatusClosed, SessionStatusOpen},
		{SessionStatusClosed, SessionStatusValidationOpen},
		{SessionStatusClosed, SessionStatusClosed},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Fatalf("expected %s -> %s to be denied", tt.from, tt.to)
		}
	}
}

func TestSessionStatusRoundTrip(t *testing.T) {
	t.Parallel()

	statuses := []SessionStatus{
		SessionStatusOpen,
		SessionStatusValidationOpen,
		SessionStatusValidationClosed,
		SessionStatusClosed,
	}
	for _, s := range statuses {
		if got := ParseSessionStatus(s.String()); got != s {
			t.Fatalf("round trip of %s produced %s", s, got)
		}
	}
	if got := ParseSessionStatus("Pendiente"); got != SessionStatusUnspecified {
		t.Fatalf("unknown value parsed to %s", got)
	}
}

func TestAttendanceStatusRoundTrip(t *testing.T) {
	t.Parallel()

	statuses := []AttendanceStatus{
		AttendanceStatusPresent,
		AttendanceStatusLate,
		AttendanceStatusAbsent,
	}
	for _, s := range statuses {
		if got := ParseAttendanceStatus(s.String()); got != s {
			t.Fatalf("round trip of %s produced %s", s, got)
		}
	}

	if !AttendanceStatusPresent.Final() || !AttendanceStatusLate.Final() {
		t.Fatal("Presente and Tarde must be final")
	}
	if AttendanceStatusAbsent.Final() {
		t.Fatal("Ausente must stay upgradeable")
	}
}
