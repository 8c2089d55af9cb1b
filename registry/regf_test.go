package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/internal/testutil"
)

func baseHiveSpec() testutil.RegfHeaderSpec {
	return testutil.RegfHeaderSpec{
		Seq1:           41,
		Seq2:           41,
		MajorVersion:   1,
		MinorVersion:   5,
		FirstKeyOffset: 0x20,
		LastHbinOffset: 2 * hbinSizeBytes,
		HiveName:       `\SystemRoot\System32\Config\SAM`,
	}
}

const hbinSizeBytes = HbinSize

// TestOpenParsesRegfHeader checks every header field this module consumes
// against the fixed REGF byte layout.
func TestOpenParsesRegfHeader(t *testing.T) {
	image := testutil.NewRegistryImage(baseHiveSpec(), 3)

	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{})
	require.NoError(t, err)
	defer fs.Close()

	h := fs.Header()
	assert.EqualValues(t, 41, h.Seq1)
	assert.EqualValues(t, 41, h.Seq2)
	assert.EqualValues(t, 1, h.MajorVersion)
	assert.EqualValues(t, 5, h.MinorVersion)
	assert.EqualValues(t, 0x20, h.FirstKeyOffset)
	assert.EqualValues(t, 2*hbinSizeBytes, h.LastHbinOffset)
	assert.Equal(t, `\SystemRoot\System32\Config\SAM`, h.HiveName)
}

// TestOpenRejectsBadMagic verifies a non-"regf" header page fails with MAGIC.
func TestOpenRejectsBadMagic(t *testing.T) {
	image := testutil.NewRegistryImage(baseHiveSpec(), 3)
	copy(image[0:4], []byte("gerf"))

	_, err := Open(testutil.NewImageReader(image), 0, OpenOptions{})
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.Magic, kind)
}

// TestOpenTruncatedHeaderIsReadError verifies a hive shorter than one REGF
// page fails with READ, not MAGIC.
func TestOpenTruncatedHeaderIsReadError(t *testing.T) {
	image := testutil.NewRegistryImage(baseHiveSpec(), 1)

	_, err := Open(testutil.NewImageReader(image[:100]), 0, OpenOptions{})
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.Read, kind)
}
