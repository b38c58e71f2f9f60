// Package domain implements the class-session lifecycle state machine and
// the attendance-tap ingestion pipeline.
//
// The Lifecycle service owns session transitions (EnProgreso →
// ValidacionAbierta → ValidacionCerrada → Cerrada) and gates every
// mutation on subject ownership. The Ledger service ingests card taps,
// classifies them against the session's late tolerance, and persists them
// idempotently: repeating a tap returns the existing record untouched.
// Closing transitions run the absentee sweep, which materializes Ausente
// records for enrolled students with no qualifying tap.
package domain
