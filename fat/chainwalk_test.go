package fat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/internal/testutil"
)

func newChainTestImage(t *testing.T) ([]byte, int64) {
	t.Helper()
	spec := testutil.FATBootSectorSpec{
		BytesPerSector:  512,
		SectorsPerClust: 1,
		ReservedSectors: 1,
		NumFATs:         1,
		RootEntryCount:  16,
		SectorsPerFAT16: 1,
		TotalSectors16:  1 + 1 + 1 + 20,
		Media:           0xF8,
	}
	image := testutil.NewFATImage(spec, int(spec.TotalSectors16))
	return image, int64(spec.ReservedSectors) * 512
}

// TestListClustersFollowsChainToEOF follows a straight three-cluster chain
// and expects it returned in chain order, EOF excluded.
func TestListClustersFollowsChainToEOF(t *testing.T) {
	image, fatStart := newChainTestImage(t)
	testutil.PutFAT16Entry(image, fatStart, 2, 5)
	testutil.PutFAT16Entry(image, fatStart, 5, 9)
	testutil.PutFAT16Entry(image, fatStart, 9, 0xFFFF)

	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{RequestedFlavor: FAT16})
	require.NoError(t, err)
	defer fs.Close()

	chain, err := fs.ListClusters(2)
	require.NoError(t, err)
	assert.Equal(t, []ClusterIndex{2, 5, 9}, chain)
}

// TestListClustersDetectsLoop: a chain that revisits a cluster must
// terminate with a corruption error after at most clusterCount steps, via
// the visited set the resolver itself lacks.
func TestListClustersDetectsLoop(t *testing.T) {
	image, fatStart := newChainTestImage(t)
	testutil.PutFAT16Entry(image, fatStart, 2, 3)
	testutil.PutFAT16Entry(image, fatStart, 3, 4)
	testutil.PutFAT16Entry(image, fatStart, 4, 2) // cycle back to the head

	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{RequestedFlavor: FAT16})
	require.NoError(t, err)
	defer fs.Close()

	chain, err := fs.ListClusters(2)
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.InodeCorrupt, kind)
	assert.Equal(t, []ClusterIndex{2, 3, 4}, chain, "every cluster before the revisit is still reported")
}

// TestListClustersTruncatesOnFreeEntry verifies a chain running into a FREE
// entry ends cleanly and records a diagnostic row instead of failing.
func TestListClustersTruncatesOnFreeEntry(t *testing.T) {
	image, fatStart := newChainTestImage(t)
	testutil.PutFAT16Entry(image, fatStart, 2, 3)
	// Cluster 3's entry stays zero: allocated data pointing into free space.

	diag := &CSVDiagnostics{}
	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{
		RequestedFlavor: FAT16,
		Diagnostics:     diag,
	})
	require.NoError(t, err)
	defer fs.Close()

	chain, err := fs.ListClusters(2)
	require.NoError(t, err)
	assert.Equal(t, []ClusterIndex{2, 3}, chain)

	require.Len(t, diag.Rows(), 1)
	assert.Equal(t, "chain-truncated", diag.Rows()[0].Kind)
}

// TestListClustersRejectsBadStart verifies the reserved indices 0 and 1 and
// anything past lastCluster fail with ARG before any FAT read happens.
func TestListClustersRejectsBadStart(t *testing.T) {
	image, _ := newChainTestImage(t)

	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{RequestedFlavor: FAT16})
	require.NoError(t, err)
	defer fs.Close()

	for _, start := range []ClusterIndex{0, 1, fs.geom.LastCluster + 10} {
		_, err := fs.ListClusters(start)
		require.Error(t, err)
		kind, ok := fserrors.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, fserrors.ARG, kind)
	}
}

// TestSanityClampRecordsDiagnostic verifies a clamped entry produces one
// CSV-exportable diagnostic row and no error.
func TestSanityClampRecordsDiagnostic(t *testing.T) {
	image, fatStart := newChainTestImage(t)
	// lastCluster = 21 on this layout; write a too-large but sub-sentinel value.
	testutil.PutFAT16Entry(image, fatStart, 2, 100)

	diag := &CSVDiagnostics{}
	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{
		RequestedFlavor: FAT16,
		Diagnostics:     diag,
	})
	require.NoError(t, err)
	defer fs.Close()

	v, err := fs.GetFat(2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, v)

	require.Len(t, diag.Rows(), 1)
	assert.Equal(t, "fat-entry-clamped", diag.Rows()[0].Kind)
	assert.EqualValues(t, 2, diag.Rows()[0].Cluster)

	csv, err := diag.CSV()
	require.NoError(t, err)
	assert.Contains(t, csv, "fat-entry-clamped")
}
