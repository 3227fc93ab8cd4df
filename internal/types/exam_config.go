package types

import (
	"time"

	"github.com/google/uuid"
)

// Default agent tuning applied when an exam configuration is created without agent_config.
const (
	DefaultMaxRetries                      = 3
	DefaultScreenshotIntervalMS            = 1000
	DefaultHumanInterventionTimeoutSeconds = 300
	DefaultCaptchaProvider                 = "manual"
	DefaultCaptchaTimeoutSeconds           = 30
)

// CaptchaHandling tells the automation agent how to deal with captchas on the portal.
type CaptchaHandling struct {
	AutoSolveEnabled bool   `json:"auto_solve_enabled" yaml:"auto_solve_enabled"`
	Provider         string `json:"provider" yaml:"provider"`
	Timeout          int    `json:"timeout" yaml:"timeout"` // seconds
}

// AgentConfig holds the automation agent's tuning for one exam portal.
// The orchestrator stores and serves it; it never interprets the values.
type AgentConfig struct {
	MaxRetries                      int             `json:"max_retries" yaml:"max_retries"`
	ScreenshotIntervalMS            int             `json:"screenshot_interval_ms" yaml:"screenshot_interval_ms"`
	HumanInterventionTimeoutSeconds int             `json:"human_intervention_timeout_seconds" yaml:"human_intervention_timeout_seconds"`
	SuccessPatterns                 []string        `json:"success_patterns" yaml:"success_patterns"`
	ErrorPatterns                   []string        `json:"error_patterns" yaml:"error_patterns"`
	CaptchaHandling                 CaptchaHandling `json:"captcha_handling" yaml:"captcha_handling"`
}

// DefaultAgentConfig returns the agent configuration used when a caller omits it on create.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxRetries:                      DefaultMaxRetries,
		ScreenshotIntervalMS:            DefaultScreenshotIntervalMS,
		HumanInterventionTimeoutSeconds: DefaultHumanInterventionTimeoutSeconds,
		SuccessPatterns:                 []string{},
		ErrorPatterns:                   []string{},
		CaptchaHandling: CaptchaHandling{
			AutoSolveEnabled: false,
			Provider:         DefaultCaptchaProvider,
			Timeout:          DefaultCaptchaTimeoutSeconds,
		},
	}
}

// Normalize replaces nil pattern lists with empty ones so they serialize as [].
func (c *AgentConfig) Normalize() {
	if c.SuccessPatterns == nil {
		c.SuccessPatterns = []string{}
	}
	if c.ErrorPatterns == nil {
		c.ErrorPatterns = []string{}
	}
}

// ExamConfig describes one external registration portal: where it lives, how
// profile fields map onto its form, and how the automation agent should behave.
type ExamConfig struct {
	ID                 uuid.UUID         `json:"id"`
	Slug               string            `json:"slug"`
	Name               string            `json:"name"`
	URL                string            `json:"url"`
	IsActive           bool              `json:"is_active"`
	FieldMappings      map[string]string `json:"field_mappings"`
	AgentConfig        AgentConfig       `json:"agent_config"`
	NotifyOnComplete   bool              `json:"notify_on_complete"`
	NotifyOnFailure    bool              `json:"notify_on_failure"`
	NotificationEmails []string          `json:"notification_emails"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ShouldNotify reports whether a transition into status should trigger a notification.
func (e *ExamConfig) ShouldNotify(status ApplicationStatus) bool {
	switch status {
	case StatusCompleted:
		return e.NotifyOnComplete
	case StatusFailed:
		return e.NotifyOnFailure
	default:
		return false
	}
}
