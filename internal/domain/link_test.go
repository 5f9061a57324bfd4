package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTargets(t *testing.T) {
	tests := []struct {
		name      string
		paramName string
		values    []TargetValue
		wantErr   bool
	}{
		{
			name:      "no targets configured",
			paramName: "",
			values:    nil,
			wantErr:   false,
		},
		{
			name:      "param name without values",
			paramName: "t",
			values:    nil,
			wantErr:   false,
		},
		{
			name:      "valid catalogue",
			paramName: "t",
			values: []TargetValue{
				{Name: "Facebook", Value: "fb"},
				{Name: "Newsletter", Value: "nl"},
			},
			wantErr: false,
		},
		{
			name:      "values without param name",
			paramName: "  ",
			values:    []TargetValue{{Name: "Facebook", Value: "fb"}},
			wantErr:   true,
		},
		{
			name:      "duplicate value",
			paramName: "t",
			values: []TargetValue{
				{Name: "Facebook", Value: "fb"},
				{Name: "Facebook Ads", Value: "fb"},
			},
			wantErr: true,
		},
		{
			name:      "empty entry name",
			paramName: "t",
			values:    []TargetValue{{Name: "", Value: "fb"}},
			wantErr:   true,
		},
		{
			name:      "empty entry value",
			paramName: "t",
			values:    []TargetValue{{Name: "Facebook", Value: " "}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargets(tt.paramName, tt.values)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
