package health

import (
	"context"
	"net/http"
	"testing"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCheck(name string, status int, message string, err error) Check {
	return Check{
		Name: name,
		Check: func(context.Context, bool) (int, string, error) {
			return status, message, err
		},
	}
}

func TestCheckAll(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		status, message, err := CheckAll(context.Background(), true, []Check{
			staticCheck("a", http.StatusOK, "OK", nil),
			staticCheck("b", http.StatusOK, `{"status":"200"}`, nil),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		var report Report
		require.NoError(t, json.Unmarshal([]byte(message), &report))
		require.Len(t, report.Dependencies, 2)
		assert.Equal(t, "OK", report.Dependencies[0].Text)
		assert.JSONEq(t, `{"status":"200"}`, string(report.Dependencies[1].Message))
	})

	t.Run("one failing check fails the report", func(t *testing.T) {
		status, message, err := CheckAll(context.Background(), false, []Check{
			staticCheck("a", http.StatusOK, "OK", nil),
			staticCheck("b", http.StatusServiceUnavailable, "down", errors.NewStorageError("closed")),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Contains(t, message, "closed")
	})
}
