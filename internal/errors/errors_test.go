package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			name: "without cause",
			err:  NewLayoutError("no header row within scan window"),
			want: "[LAYOUT_NOT_RECOGNIZED] no header row within scan window",
		},
		{
			name: "with cause",
			err:  NewStorageError("open workbook", fmt.Errorf("no such file")),
			want: "[STORAGE] open workbook: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsType(t *testing.T) {
	layoutErr := NewLayoutError("no header")
	wrapped := fmt.Errorf("table08: %w", layoutErr)

	assert.True(t, IsType(layoutErr, ErrTypeLayout))
	assert.True(t, IsType(wrapped, ErrTypeLayout))
	assert.False(t, IsType(wrapped, ErrTypeSchema))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeLayout))
}

func TestWithContext(t *testing.T) {
	err := NewSchemaError("required field absent").
		WithContext("table_id", "table08").
		WithContext("field", "year_month")

	assert.Equal(t, "table08", err.Context["table_id"])
	assert.Equal(t, "year_month", err.Context["field"])
}
