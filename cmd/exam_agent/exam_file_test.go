package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/exam-automation/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
exams:
  - slug: jee-main
    name: JEE Main
    url: https://jeemain.example.org/register
    field_mappings:
      full_name: candidateName
      dob: txtDOB
    agent_config:
      max_retries: 5
      screenshot_interval_ms: 500
      human_intervention_timeout_seconds: 120
      success_patterns: ["Application submitted"]
      error_patterns: []
      captcha_handling:
        auto_solve_enabled: false
        provider: manual
        timeout: 30
    notify_on_failure: true
    notification_emails: [ops@example.com]
  - slug: neet-ug
    name: NEET UG
    url: https://neet.example.org
    is_active: false
`

func TestParseExamFile(t *testing.T) {
	reqs, err := parseExamFile([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	jee := reqs[0]
	assert.Equal(t, "jee-main", jee.Slug)
	assert.Equal(t, "candidateName", jee.FieldMappings["full_name"])
	require.NotNil(t, jee.AgentConfig)
	assert.Equal(t, 5, jee.AgentConfig.MaxRetries)
	assert.Equal(t, []string{"Application submitted"}, jee.AgentConfig.SuccessPatterns)
	assert.True(t, jee.NotifyOnFailure)
	assert.Equal(t, []string{"ops@example.com"}, jee.NotificationEmails)
	assert.Nil(t, jee.IsActive)

	neet := reqs[1]
	require.NotNil(t, neet.IsActive)
	assert.False(t, *neet.IsActive)
	assert.Nil(t, neet.AgentConfig)
}

func TestParseExamFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"not yaml", "exams: [", "failed to parse YAML"},
		{"no entries", "exams: []", "no entries"},
		{"wrong key", "configs:\n  - slug: a\n", "no entries"},
		{"missing url", "exams:\n  - slug: jee\n    name: JEE\n", "exam #1"},
		{"unknown field", "exams:\n  - slug: jee\n    name: JEE\n    url: https://x.example.org\n    portal: x\n", "exam #1"},
		{
			"duplicate slug",
			"exams:\n  - {slug: jee, name: A, url: https://a.example.org}\n  - {slug: jee, name: B, url: https://b.example.org}\n",
			`slug "jee" already used by exam #1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExamFile([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseExamFile_SchemaErrorIsTyped(t *testing.T) {
	_, err := parseExamFile([]byte("exams:\n  - {slug: JEE, name: A, url: https://a.example.org}\n"))
	var validationErr *schemas.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "slug", validationErr.Errors[0].Field)
}

func TestLoadExamFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exams.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	reqs, err := loadExamFile(path)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	_, err = loadExamFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read exam file")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
