package validator

import (
	"net/mail"
	"strings"

	"github.com/pysend/pysend/internal/domain"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	// Temp-ban duration bounds in minutes. Guardians have a higher floor
	// than admins and creators.
	TempBanGuardianMinMinutes = 5
	TempBanAdminMinMinutes    = 1
	TempBanMaxMinutes         = 1440

	// Platform-ban duration bounds in days.
	PlatformBanMinDays = 7
	PlatformBanMaxDays = 60
)

func ValidateSignIn(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateChannelName(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Channel name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Channel name must be at least 2 characters")
	} else if len(name) > 100 {
		errs.Add("name", "Channel name is too long")
	}

	return errs
}

func ValidateMessageBody(body string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(body) == "" {
		errs.Add("body", "Message body is required")
	} else if len(body) > 4000 {
		errs.Add("body", "Message is too long")
	}

	return errs
}

func ValidateTempBan(actorRole domain.Role, minutes int, reason string) ValidationErrors {
	errs := make(ValidationErrors)

	floor := TempBanAdminMinMinutes
	if actorRole == domain.RoleGuardian {
		floor = TempBanGuardianMinMinutes
	}
	if minutes < floor {
		errs.Add("minutes", "Ban duration is below the minimum for your role")
	} else if minutes > TempBanMaxMinutes {
		errs.Add("minutes", "Ban duration exceeds 24 hours")
	}

	if strings.TrimSpace(reason) == "" {
		errs.Add("reason", "Reason is required")
	}

	return errs
}

func ValidatePlatformBan(days int, reason string) ValidationErrors {
	errs := make(ValidationErrors)

	if days < PlatformBanMinDays {
		errs.Add("days", "Platform ban must last at least 7 days")
	} else if days > PlatformBanMaxDays {
		errs.Add("days", "Platform ban cannot exceed 60 days")
	}

	if strings.TrimSpace(reason) == "" {
		errs.Add("reason", "Reason is required")
	}

	return errs
}

func ValidateWarnReason(reason string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(reason) == "" {
		errs.Add("reason", "Reason is required")
	} else if len(reason) > 500 {
		errs.Add("reason", "Reason is too long")
	}

	return errs
}
