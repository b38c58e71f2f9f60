package domain

// SessionStatus describes the lifecycle state of a class session.
type SessionStatus int

const (
	// SessionStatusUnspecified represents an invalid session status value.
	SessionStatusUnspecified SessionStatus = iota
	// SessionStatusOpen indicates the session is in progress and accepting
	// live taps.
	SessionStatusOpen
	// SessionStatusValidationOpen indicates the secondary confirmation
	// window is open.
	SessionStatusValidationOpen
	// SessionStatusValidationClosed indicates the confirmation window has
	// been closed and absences materialized.
	SessionStatusValidationClosed
	// SessionStatusClosed is the terminal state; no further mutation is
	// permitted.
	SessionStatusClosed
)

// Stored session status values, kept compatible with the original AulaTap
// database enum.
const (
	sessionStatusOpenValue             = "EnProgreso"
	sessionStatusValidationOpenValue   = "ValidacionAbierta"
	sessionStatusValidationClosedValue = "ValidacionCerrada"
	sessionStatusClosedValue           = "Cerrada"
)

// String returns the stored representation of the status.
func (s SessionStatus) String() string {
	switch s {
	case SessionStatusOpen:
		return sessionStatusOpenValue
	case SessionStatusValidationOpen:
		return sessionStatusValidationOpenValue
	case SessionStatusValidationClosed:
		return sessionStatusValidationClosedValue
	case SessionStatusClosed:
		return sessionStatusClosedValue
	default:
		return "Unspecified"
	}
}

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusClosed
}

// ParseSessionStatus converts a stored value back into a SessionStatus.
func ParseSessionStatus(value string) SessionStatus {
	switch value {
	case sessionStatusOpenValue:
		return SessionStatusOpen
	case sessionStatusValidationOpenValue:
		return SessionStatusValidationOpen
	case sessionStatusValidationClosedValue:
		return SessionStatusValidationClosed
	case sessionStatusClosedValue:
		return SessionStatusClosed
	default:
		return SessionStatusUnspecified
	}
}

// sessionTransitions is the closed set of legal session transitions.
// Close is reachable from every non-terminal state; the validation
// transitions move strictly forward.
var sessionTransitions = map[SessionStatus]map[SessionStatus]bool{
	SessionStatusOpen: {
		SessionStatusValidationOpen: true,
		SessionStatusClosed:         true,
	},
	SessionStatusValidationOpen: {
		SessionStatusValidationClosed: true,
		SessionStatusClosed:           true,
	},
	SessionStatusValidationClosed: {
		SessionStatusClosed: true,
	},
}

// CanTransition reports whether a session may move from one status to
// another.
func CanTransition(from, to SessionStatus) bool {
	return sessionTransitions[from][to]
}

// AttendanceStatus describes the state of one attendance record.
type AttendanceStatus int

const (
	// AttendanceStatusUnspecified represents an invalid attendance status.
	AttendanceStatusUnspecified AttendanceStatus = iota
	// AttendanceStatusPresent marks a tap within the late tolerance.
	AttendanceStatusPresent
	// AttendanceStatusLate marks a tap after the late tolerance, or a
	// validation-window confirmation.
	AttendanceStatusLate
	// AttendanceStatusAbsent marks an enrolled student with no qualifying
	// tap, materialized by the absentee sweep.
	AttendanceStatusAbsent
)

// Stored attendance status values, kept compatible with the original
// AulaTap database enum.
const (
	attendanceStatusPresentValue = "Presente"
	attendanceStatusLateValue    = "Tarde"
	attendanceStatusAbsentValue  = "Ausente"
)

// String returns the stored representation of the status.
func (s AttendanceStatus) String() string {
	switch s {
	case AttendanceStatusPresent:
		return attendanceStatusPresentValue
	case AttendanceStatusLate:
		return attendanceStatusLateValue
	case AttendanceStatusAbsent:
		return attendanceStatusAbsentValue
	default:
		return "Unspecified"
	}
}

// ParseAttendanceStatus converts a stored value back into an
// AttendanceStatus.
func ParseAttendanceStatus(value string) AttendanceStatus {
	switch value {
	case attendanceStatusPresentValue:
		return AttendanceStatusPresent
	case attendanceStatusLateValue:
		return AttendanceStatusLate
	case attendanceStatusAbsentValue:
		return AttendanceStatusAbsent
	default:
		return AttendanceStatusUnspecified
	}
}

// Final reports whether the attendance status may no longer change.
// Presente and Tarde are immutable; Ausente may still be upgraded to
// Tarde during the validation window.
func (s AttendanceStatus) Final() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}
