package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pysend/pysend/internal/domain"
)

func TestValidateSignIn(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidateSignIn("ivy@pysend.dev", "secret").HasErrors())

	errs := ValidateSignIn("", "")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	errs = ValidateSignIn("not-an-email", "secret")
	assert.Contains(t, errs, "email")
}

func TestValidateChannelName(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidateChannelName("general").HasErrors())
	assert.False(t, ValidateChannelName("  ok  ").HasErrors())

	assert.Contains(t, ValidateChannelName(""), "name")
	assert.Contains(t, ValidateChannelName("x"), "name")
	assert.Contains(t, ValidateChannelName(strings.Repeat("n", 101)), "name")
}

func TestValidateMessageBody(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidateMessageBody("hello").HasErrors())
	assert.Contains(t, ValidateMessageBody("   "), "body")
	assert.Contains(t, ValidateMessageBody(strings.Repeat("b", 4001)), "body")
}

func TestValidateTempBan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    domain.Role
		minutes int
		ok      bool
	}{
		{"guardian below floor", domain.RoleGuardian, 4, false},
		{"guardian at floor", domain.RoleGuardian, TempBanGuardianMinMinutes, true},
		{"admin at floor", domain.RoleAdmin, TempBanAdminMinMinutes, true},
		{"creator at admin floor", domain.RoleCreator, TempBanAdminMinMinutes, true},
		{"at cap", domain.RoleAdmin, TempBanMaxMinutes, true},
		{"over cap", domain.RoleAdmin, TempBanMaxMinutes + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := ValidateTempBan(tt.role, tt.minutes, "reason")
			if tt.ok {
				assert.False(t, errs.HasErrors())
			} else {
				assert.Contains(t, errs, "minutes")
			}
		})
	}

	assert.Contains(t, ValidateTempBan(domain.RoleAdmin, 10, "  "), "reason")
}

func TestValidatePlatformBan(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidatePlatformBan(PlatformBanMinDays, "severe").HasErrors())
	assert.False(t, ValidatePlatformBan(PlatformBanMaxDays, "severe").HasErrors())
	assert.Contains(t, ValidatePlatformBan(PlatformBanMinDays-1, "severe"), "days")
	assert.Contains(t, ValidatePlatformBan(PlatformBanMaxDays+1, "severe"), "days")
	assert.Contains(t, ValidatePlatformBan(14, ""), "reason")
}

func TestValidateWarnReason(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidateWarnReason("spamming").HasErrors())
	assert.Contains(t, ValidateWarnReason(""), "reason")
	assert.Contains(t, ValidateWarnReason(strings.Repeat("r", 501)), "reason")
}
