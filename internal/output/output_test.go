package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestStatusColor(t *testing.T) {
	assert.NotEmpty(t, StatusColor("in_progress"))
	assert.NotEmpty(t, StatusColor("done"))
	assert.Equal(t, "todo", StatusColor("todo"))
	assert.Equal(t, "unknown", StatusColor("unknown"))
}

func TestLevelColor(t *testing.T) {
	for _, level := range []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"} {
		assert.Contains(t, LevelColor(level), level)
	}
	assert.Equal(t, "deterministic", LevelColor("deterministic"))
}

func TestPercentColor(t *testing.T) {
	assert.Contains(t, PercentColor(90), "90%")
	assert.Contains(t, PercentColor(60), "60%")
	assert.Contains(t, PercentColor(30), "30%")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(1, 0, 10))
	assert.Equal(t, 10, len([]rune(Bar(3, 4, 10))))
	assert.Equal(t, "\u2588\u2588\u2588\u2588\u2588\u00b7\u00b7\u00b7\u00b7\u00b7", Bar(2, 4, 10))
	assert.Equal(t, "\u2588\u00b7\u00b7\u00b7", Bar(1, 100, 4), "non-zero values always show")
	assert.Equal(t, "\u2588\u2588", Bar(9, 4, 2))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Task", "Level"})
	require.NotNil(t, table)

	require.NoError(t, table.Append([]string{"login", "CRITICAL"}))
	require.NoError(t, table.Append([]string{"docs", "LOW"}))
	require.NoError(t, table.Render())

	result := out.String()
	assert.True(t, strings.Contains(result, "login"), "table output should contain task titles")
	assert.True(t, strings.Contains(result, "docs"), "table output should contain task titles")
}
