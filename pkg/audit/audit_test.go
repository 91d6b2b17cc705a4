package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Append_WritesOneJSONLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	require.NoError(t, logger.Decision(EventDecisionRecommended, "corr-1", "dec-1", map[string]any{"risk": "HIGH"}))
	require.NoError(t, logger.Playbook(EventPlaybookPromoted, "corr-1", "pb-1", nil))

	lines := scanLines(t, &buf)
	require.Len(t, lines, 2)

	var first Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, EventDecisionRecommended, first.EventType)
	assert.Equal(t, "dec-1", first.DecisionID)
	assert.Empty(t, first.PlaybookID)
	assert.False(t, first.Timestamp.IsZero())

	var second Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "pb-1", second.PlaybookID)
	assert.Empty(t, second.DecisionID)
}

func TestLogger_Append_OmitsEmptyOptionalFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	require.NoError(t, logger.TickSkipped("corr-2", "NO_PROVIDER_AVAILABLE"))

	line := strings.TrimSpace(buf.String())
	assert.NotContains(t, line, `"decision_id"`)
	assert.NotContains(t, line, `"playbook_id"`)
	assert.Contains(t, line, `"event_type":"TICK_SKIPPED"`)
	assert.Contains(t, line, `"reason":"NO_PROVIDER_AVAILABLE"`)
}

func TestLogger_Append_ConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	const n = 50
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_ = logger.Decision(EventExecutionRecorded, "corr-3", "dec-x", map[string]any{"i": i})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	lines := scanLines(t, &buf)
	assert.Len(t, lines, n)
	for _, line := range lines {
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
	}
}

func scanLines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	var lines []string
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines = append(lines, scanner.Text())
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}
