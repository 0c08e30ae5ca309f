package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySite(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"DEN01-DC", TypeDataCenter},
		{"RIC-BR", TypeBranch},
		{"-DC", TypeDataCenter},
		{"A-BR-DC", TypeDataCenter},
		{"A-DC-BR", TypeBranch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifySite(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifySite_Unknown(t *testing.T) {
	for _, name := range []string{"HQ", "den01-dc", "DEN01-DC ", "Branch-Br", ""} {
		t.Run(name, func(t *testing.T) {
			_, err := ClassifySite(name)
			require.ErrorIs(t, err, ErrUnknownSiteSuffix)
		})
	}
}

func TestSkipMessage(t *testing.T) {
	assert.Equal(t,
		"Site name 'HQ-01' does not end with '-DC' or '-BR'. Skipping.",
		SkipMessage("HQ-01"),
	)
}
