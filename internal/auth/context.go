package auth

import "context"

type ctxKey string

const patientKey ctxKey = "carebook.patient_id"

// WithPatientID stores the verified requester identity in context.
func WithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, patientKey, patientID)
}

// PatientIDFromContext extracts the requester identity if present.
func PatientIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(patientKey)
	if val == nil {
		return "", false
	}
	patientID, ok := val.(string)
	return patientID, ok && patientID != ""
}
