package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_FieldCompression(t *testing.T) {
	s, err := NewAuditService(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		fields map[string]any
		algo   string
	}{
		{"empty", nil, CompressionNone},
		{"small", map[string]any{"reason": "Drying"}, CompressionNone},
		{"large", map[string]any{"notes": strings.Repeat("x", 12*1024)}, CompressionZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain, compressed, algo, err := s.encodeFields(tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.algo, algo)
			if algo == CompressionZstd {
				assert.Nil(t, plain)
				assert.Less(t, len(compressed), 12*1024)
			}

			got, err := s.DecodeFields(plain, compressed, algo)
			require.NoError(t, err)
			if len(tt.fields) == 0 {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
