package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/confit/pkg/filesystem"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
)

func newTestReporter(t *testing.T) (*Reporter, string) {
	t.Helper()
	root := t.TempDir()
	pather, err := paths.New(root)
	require.NoError(t, err)
	return New(filesystem.NewOS(), pather), root
}

func TestReport_WriteStates(t *testing.T) {
	r, root := newTestReporter(t)
	okTarget := filepath.Join(root, "ok.json")
	driftTarget := filepath.Join(root, "drift.json")
	require.NoError(t, os.WriteFile(okTarget, []byte("expected\n"), 0644))
	require.NoError(t, os.WriteFile(driftTarget, []byte("actual\n"), 0644))

	statuses, err := r.Report([]types.Action{
		{Kind: types.ActionWrite, Target: okTarget, Content: "expected\n"},
		{Kind: types.ActionWrite, Target: driftTarget, Content: "expected\n"},
		{Kind: types.ActionWrite, Target: filepath.Join(root, "absent.json"), Content: "x"},
	})
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, StateOK, statuses[0].State)
	assert.Empty(t, statuses[0].Diff)

	assert.Equal(t, StateDrift, statuses[1].State)
	assert.Contains(t, statuses[1].Diff, "-actual")
	assert.Contains(t, statuses[1].Diff, "+expected")
	assert.Contains(t, statuses[1].Diff, "drift.json")

	assert.Equal(t, StateMissing, statuses[2].State)
	assert.False(t, Clean(statuses))
}

func TestReport_LinkStates(t *testing.T) {
	r, root := newTestReporter(t)
	source := filepath.Join(root, "framework", "templates", "__a.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
	require.NoError(t, os.WriteFile(source, []byte("a: 1\n"), 0644))

	good := filepath.Join(root, "good.yaml")
	rel, err := filepath.Rel(root, source)
	require.NoError(t, err)
	require.NoError(t, os.Symlink(rel, good))

	wrong := filepath.Join(root, "wrong.yaml")
	require.NoError(t, os.Symlink("somewhere-else.yaml", wrong))

	plain := filepath.Join(root, "plain.yaml")
	require.NoError(t, os.WriteFile(plain, []byte("a: 1\n"), 0644))

	statuses, err := r.Report([]types.Action{
		{Kind: types.ActionLink, Target: good, Source: source},
		{Kind: types.ActionLink, Target: wrong, Source: source},
		{Kind: types.ActionLink, Target: plain, Source: source},
		{Kind: types.ActionLink, Target: filepath.Join(root, "none.yaml"), Source: source},
	})
	require.NoError(t, err)

	assert.Equal(t, StateOK, statuses[0].State)
	assert.Equal(t, StateDrift, statuses[1].State)
	assert.Equal(t, StateDrift, statuses[2].State, "regular file where a link belongs")
	assert.Equal(t, StateMissing, statuses[3].State)
}

func TestReport_CopyStates(t *testing.T) {
	r, root := newTestReporter(t)
	source := filepath.Join(root, "src.txt")
	require.NoError(t, os.WriteFile(source, []byte("content"), 0644))

	same := filepath.Join(root, "same.txt")
	require.NoError(t, os.WriteFile(same, []byte("content"), 0644))
	stale := filepath.Join(root, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	statuses, err := r.Report([]types.Action{
		{Kind: types.ActionCopy, Target: same, Source: source},
		{Kind: types.ActionCopy, Target: stale, Source: source},
	})
	require.NoError(t, err)
	assert.Equal(t, StateOK, statuses[0].State)
	assert.Equal(t, StateDrift, statuses[1].State)
}

func TestReport_RemoveStates(t *testing.T) {
	r, root := newTestReporter(t)
	lingering := filepath.Join(root, "lingering.json")
	require.NoError(t, os.WriteFile(lingering, []byte("x"), 0644))

	statuses, err := r.Report([]types.Action{
		{Kind: types.ActionRemove, Target: lingering},
		{Kind: types.ActionRemove, Target: filepath.Join(root, "gone.json")},
	})
	require.NoError(t, err)
	assert.Equal(t, StateStale, statuses[0].State)
	assert.Equal(t, StateOK, statuses[1].State)
	assert.False(t, Clean(statuses))
}

func TestClean_AllOK(t *testing.T) {
	assert.True(t, Clean(nil))
	assert.True(t, Clean([]TargetStatus{{State: StateOK}}))
	assert.False(t, Clean([]TargetStatus{{State: StateOK}, {State: StateMissing}}))
}
