package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}

func TestPromoteFlagDefaultsOff(t *testing.T) {
	t.Setenv("PROMOTE_ON_DUE_DATE_PAYMENT", "")

	cfg := Load()
	if cfg.PromoteOnDuePayment {
		t.Fatalf("expected due-date promotion to default off")
	}

	t.Setenv("PROMOTE_ON_DUE_DATE_PAYMENT", "true")
	if !Load().PromoteOnDuePayment {
		t.Fatalf("expected due-date promotion to be enabled")
	}
}

func TestSMTPConfigured(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_SENDER", "")
	t.Setenv("REMINDER_RECIPIENT", "")

	if Load().SMTPConfigured() {
		t.Fatalf("expected SMTP to be unconfigured")
	}

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_SENDER", "noreply@example.com")
	t.Setenv("REMINDER_RECIPIENT", "collections@example.com")

	if !Load().SMTPConfigured() {
		t.Fatalf("expected SMTP to be configured")
	}
}
