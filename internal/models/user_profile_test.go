package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUserType(t *testing.T) {
	assert.True(t, ValidUserType(UserTypeDoctor))
	assert.True(t, ValidUserType(UserTypePatient))
	assert.False(t, ValidUserType(""))
	assert.False(t, ValidUserType("admin"))
	assert.False(t, ValidUserType("Doctor"))
}

func TestIsDoctorNilSafe(t *testing.T) {
	var p *UserProfile
	assert.False(t, p.IsDoctor())
	assert.False(t, (&UserProfile{UserType: UserTypePatient}).IsDoctor())
	assert.True(t, (&UserProfile{UserType: UserTypeDoctor}).IsDoctor())
}
