// Environment configuration for the delivery transport.
package main

import (
	"fmt"
	"os"
)

// mailConfig holds the resolved SMTP delivery settings.
type mailConfig struct {
	Host string // SMTP server host
	Port string // SMTP server port
	User string // SMTP username
	Pass string // SMTP password
	To   string // recipient address (e-reader inbox)
	From string // sender address, falls back to User
}

// loadMailConfig reads delivery settings from BINDERY_* environment
// variables. The port defaults to 587 and the sender address falls back to
// the SMTP username.
func loadMailConfig() (mailConfig, error) {
	cfg := mailConfig{
		Host: os.Getenv("BINDERY_SMTP_HOST"),
		Port: os.Getenv("BINDERY_SMTP_PORT"),
		User: os.Getenv("BINDERY_SMTP_USER"),
		Pass: os.Getenv("BINDERY_SMTP_PASS"),
		To:   os.Getenv("BINDERY_SEND_TO"),
		From: os.Getenv("BINDERY_SEND_FROM"),
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}

	var missing []string
	for _, v := range []struct{ name, val string }{
		{"BINDERY_SMTP_HOST", cfg.Host},
		{"BINDERY_SMTP_USER", cfg.User},
		{"BINDERY_SMTP_PASS", cfg.Pass},
		{"BINDERY_SEND_TO", cfg.To},
	} {
		if v.val == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing environment variables: %v", missing)
	}
	return cfg, nil
}
