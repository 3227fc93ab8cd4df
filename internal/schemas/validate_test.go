package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExamConfig(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantValid bool
		wantField string
	}{
		{
			name:      "minimal",
			document:  `{"slug": "jee-main", "name": "JEE Main", "url": "https://jeemain.example.org"}`,
			wantValid: true,
		},
		{
			name: "full",
			document: `{
				"slug": "neet_ug",
				"name": "NEET UG",
				"url": "https://neet.example.org/apply",
				"is_active": false,
				"field_mappings": {"full_name": "txtName", "dob": "txtDOB"},
				"agent_config": {
					"max_retries": 5,
					"screenshot_interval_ms": 500,
					"human_intervention_timeout_seconds": 120,
					"success_patterns": ["Application submitted"],
					"error_patterns": ["Session expired"],
					"captcha_handling": {"auto_solve_enabled": true, "provider": "2captcha", "timeout": 45}
				},
				"notify_on_complete": true,
				"notify_on_failure": true,
				"notification_emails": ["ops@example.com"]
			}`,
			wantValid: true,
		},
		{
			name:      "missing slug",
			document:  `{"name": "JEE Main", "url": "https://jeemain.example.org"}`,
			wantField: "(root)",
		},
		{
			name:      "uppercase slug",
			document:  `{"slug": "JEE", "name": "JEE Main", "url": "https://jeemain.example.org"}`,
			wantField: "slug",
		},
		{
			name:      "non-string mapping",
			document:  `{"slug": "jee", "name": "JEE", "url": "https://x.example.org", "field_mappings": {"dob": 12}}`,
			wantField: "field_mappings.dob",
		},
		{
			name:      "negative retries",
			document:  `{"slug": "jee", "name": "JEE", "url": "https://x.example.org", "agent_config": {"max_retries": -1}}`,
			wantField: "agent_config.max_retries",
		},
		{
			name:      "unknown agent option",
			document:  `{"slug": "jee", "name": "JEE", "url": "https://x.example.org", "agent_config": {"retries": 2}}`,
			wantField: "agent_config",
		},
		{
			name:      "bad email",
			document:  `{"slug": "jee", "name": "JEE", "url": "https://x.example.org", "notification_emails": ["ops"]}`,
			wantField: "notification_emails.0",
		},
		{
			name:      "not json",
			document:  `slug: jee`,
			wantField: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExamConfig([]byte(tt.document))
			if tt.wantValid {
				assert.NoError(t, err)
				return
			}

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "error should be ValidationError type, got %v", err)
			require.NotEmpty(t, validationErr.Errors)
			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidateExamConfigPatch(t *testing.T) {
	assert.NoError(t, ValidateExamConfigPatch([]byte(`{"is_active": false}`)))
	assert.NoError(t, ValidateExamConfigPatch([]byte(`{"agent_config": {"max_retries": 1}}`)))

	err := ValidateExamConfigPatch([]byte(`{}`))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	err = ValidateExamConfigPatch([]byte(`{"slug": ""}`))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "slug", validationErr.Errors[0].Field)

	err = ValidateExamConfigPatch([]byte(`{"id": "x"}`))
	require.ErrorAs(t, err, &validationErr)
}

func TestValidationError_Messages(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "slug", Message: "is required"},
		{Field: "url", Message: "must be a string"},
	}}
	assert.Equal(t, "slug: is required; url: must be a string", ve.Summary())
	assert.Contains(t, ve.Error(), "1. slug: is required")
	assert.Contains(t, ve.Error(), "2. url: must be a string")
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "(string schema)")
}

func TestEmbeddedSchemasLoad(t *testing.T) {
	assert.NotEmpty(t, examConfigSchema)
	assert.NotEmpty(t, examConfigPatchSchema)
}
