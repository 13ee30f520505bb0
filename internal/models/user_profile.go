package models

// User types stored in the profile document. The value gates doctor-only UI
// (patient name field, patient search) but the backend re-verifies the role on
// every call; the client treats it as a hint only.
const (
	UserTypeDoctor  = "doctor"
	UserTypePatient = "patient"
)

// UserProfile is the per-user document in the "users-procare" collection,
// keyed by the Firebase Auth UID. It is written once at sign-up completion and
// read on every page that needs role-gated behavior.
type UserProfile struct {
	Name     string `json:"name" firestore:"name"`
	Email    string `json:"email" firestore:"email"`
	UserType string `json:"userType" firestore:"userType"`
}

// IsDoctor reports whether the profile carries the doctor role.
func (p *UserProfile) IsDoctor() bool {
	return p != nil && p.UserType == UserTypeDoctor
}

// ValidUserType reports whether t is one of the two accepted role values.
func ValidUserType(t string) bool {
	return t == UserTypeDoctor || t == UserTypePatient
}
