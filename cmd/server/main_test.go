package main

import (
	"testing"

	"hulugan/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", ManagerPIN: "123456"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", ManagerPIN: "739154"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidatePINStrength(t *testing.T) {
	if err := validatePINStrength("111111"); err == nil {
		t.Fatalf("expected all-same-digit PIN to be rejected")
	}
	if err := validatePINStrength("345678"); err == nil {
		t.Fatalf("expected sequential PIN to be rejected")
	}
	if err := validatePINStrength("739154"); err != nil {
		t.Fatalf("expected random PIN to pass, got %v", err)
	}
}
