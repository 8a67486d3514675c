package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefinitionJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "valid definition",
			raw: `{
				"name": "deploy-pipeline",
				"version": "1",
				"steps": [
					{"id": "build", "name": "build", "action": "log"},
					{"id": "deploy", "name": "deploy", "action": "log", "depends_on": ["build"]}
				]
			}`,
			wantErr: false,
		},
		{
			name:    "draft without steps",
			raw:     `{"name": "work-in-progress", "version": "1"}`,
			wantErr: false,
		},
		{
			name:    "missing version",
			raw:     `{"name": "deploy-pipeline"}`,
			wantErr: true,
		},
		{
			name:    "name too short",
			raw:     `{"name": "ab", "version": "1"}`,
			wantErr: true,
		},
		{
			name: "step id with invalid characters",
			raw: `{
				"name": "deploy-pipeline",
				"version": "1",
				"steps": [{"id": "Build Step", "name": "build", "action": "log"}]
			}`,
			wantErr: true,
		},
		{
			name: "unknown failure policy",
			raw: `{
				"name": "deploy-pipeline",
				"version": "1",
				"steps": [{"id": "build", "name": "build", "action": "log", "on_failure": "EXPLODE"}]
			}`,
			wantErr: true,
		},
		{
			name: "retry attempts below one",
			raw: `{
				"name": "deploy-pipeline",
				"version": "1",
				"steps": [{"id": "build", "name": "build", "action": "log", "retry": {"max_attempts": 0}}]
			}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			raw:     `[]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinitionJSON([]byte(tt.raw))

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateDefinitionJSON_CollectsAllProblems(t *testing.T) {
	raw := `{
		"name": "ab",
		"version": "",
		"steps": [{"id": "Build Step", "name": "build", "action": "log"}]
	}`

	err := ValidateDefinitionJSON([]byte(raw))
	require.Error(t, err)

	var validationErr *ValidationError

	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Problems), 3)
}
