package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("round %d underway", 2)
	assert.Contains(t, out.String(), "round 2 underway")
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
	u.DryRunMsg("would invoke %d reviewers", 3)
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would invoke 3 reviewers")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would invoke %d reviewers", 3)
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestConsensusColor(t *testing.T) {
	for _, status := range []models.ConsensusStatus{
		models.StatusConsensusApprove,
		models.StatusConsensusReject,
		models.StatusMajorityApprove,
		models.StatusMajorityReject,
		models.StatusNoConsensus,
		models.StatusUnclear,
	} {
		assert.Contains(t, ConsensusColor(status), string(status))
	}
	assert.Equal(t, "bogus", ConsensusColor(models.ConsensusStatus("bogus")))
}

func TestAvailabilityColor(t *testing.T) {
	assert.Contains(t, AvailabilityColor(true), "ok")
	assert.Contains(t, AvailabilityColor(false), "missing")
}

func TestSilentDiscardsEverything(t *testing.T) {
	u := Silent()
	u.Info("nothing")
	u.Error("nothing")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Round", "Status"})
	require.NotNil(t, table)

	table.Append([]string{"1", "NO_CONSENSUS"})
	table.Append([]string{"2", "CONSENSUS_APPROVE"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "NO_CONSENSUS"),
		"table output should contain round statuses")
	assert.True(t, strings.Contains(result, "CONSENSUS_APPROVE"),
		"table output should contain round statuses")
}
