package handle_test

import (
	"testing"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/handle"
	"codeberg.org/mutker/sysmon/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statPath = "/sys/block/sda/stat"

func TestOpenMissing(t *testing.T) {
	_, err := handle.Open(afero.NewMemMapFs(), "/sys/block/nope/stat")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, handle.ErrNotFound))
}

func TestReadAllRereadsFromStart(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, statPath, "100 0 1000 0\n")

	h, err := handle.Open(fs, statPath)
	require.NoError(t, err)
	defer h.Close()

	var buf []byte
	n, err := h.ReadAll(&buf)
	require.NoError(t, err)
	assert.Equal(t, "100 0 1000 0\n", string(buf[:n]))

	testutil.WriteFile(t, fs, statPath, "200 0 1512 0\n")
	n, err = h.ReadAll(&buf)
	require.NoError(t, err)
	assert.Equal(t, "200 0 1512 0\n", string(buf[:n]))
}

func TestReadRetryRecoversAfterReopen(t *testing.T) {
	base := afero.NewMemMapFs()
	testutil.WriteFile(t, base, statPath, "")
	fs := testutil.NewFlakyFs(base)

	h, err := handle.Open(fs, statPath)
	require.NoError(t, err)
	defer h.Close()

	// The open handle keeps seeing the old, empty file; only a reopen finds
	// the replacement.
	require.NoError(t, base.Remove(statPath))
	testutil.WriteFile(t, base, statPath, "4 5 6\n")

	var buf []byte
	n, err := h.ReadRetry(&buf)
	require.NoError(t, err)
	assert.Equal(t, "4 5 6\n", string(buf[:n]))
	assert.Equal(t, 2, fs.Opens(statPath))
	assert.True(t, h.IsOpen())
}

func TestReadRetryReopensOnReadError(t *testing.T) {
	base := afero.NewMemMapFs()
	testutil.WriteFile(t, base, statPath, "1 2 3\n")
	fs := testutil.NewFlakyFs(base)

	h, err := handle.Open(fs, statPath)
	require.NoError(t, err)
	defer h.Close()

	fs.Break(statPath)

	var buf []byte
	_, err = h.ReadAll(&buf)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, handle.ErrReadFailed))

	_, err = h.ReadRetry(&buf)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, handle.ErrEvict))
	assert.False(t, h.IsOpen())
	assert.Equal(t, 1, fs.Opens(statPath))
}

func TestReadRetryEvictsOnPersistentEmptyRead(t *testing.T) {
	fs := testutil.NewFlakyFs(afero.NewMemMapFs())
	testutil.WriteFile(t, fs, statPath, "")

	h, err := handle.Open(fs, statPath)
	require.NoError(t, err)

	var buf []byte
	_, err = h.ReadRetry(&buf)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, handle.ErrEvict))
	assert.True(t, errors.HasCode(err, handle.ErrReadFailed))
	assert.False(t, h.IsOpen())
	assert.Equal(t, 2, fs.Opens(statPath), "exactly one reopen")
}

func TestClosedHandle(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, statPath, "1\n")

	h, err := handle.Open(fs, statPath)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	var buf []byte
	_, err = h.ReadAll(&buf)
	assert.True(t, errors.HasCode(err, handle.ErrClosed))
	assert.False(t, h.IsOpen())

	assert.NotPanics(t, func() { handle.CloseAll(nil, h) })
}
