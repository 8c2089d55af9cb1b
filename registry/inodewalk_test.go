package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/internal/testutil"
)

// newCellWalkHive builds a two-HBIN hive whose first HBIN holds three cells
// (one free, an allocated NK, an allocated VK filling the rest of the page)
// and whose second HBIN holds a single allocated SK cell. Every HBIN is
// fully tiled by cells, as in a real hive.
func newCellWalkHive(t *testing.T) *FsInfo {
	t.Helper()
	image := testutil.NewRegistryImage(baseHiveSpec(), 3)
	testutil.WriteHbinPageMagic(image, HbinSize)
	testutil.WriteHbinPageMagic(image, 2*HbinSize)

	const cellArea = HbinSize - hbinHeaderSize // 4064 bytes per page

	testutil.WriteCell(image, HbinSize+32, false, 0x20, "nk") // free slack
	testutil.WriteCell(image, HbinSize+32+0x20, true, 0x30, "nk")
	testutil.WriteCell(image, HbinSize+32+0x20+0x30, true, cellArea-0x20-0x30, "vk")
	testutil.WriteCell(image, 2*HbinSize+32, true, cellArea, "sk")

	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

// TestCellWalkVisitsEveryCell: default flags visit all four cells in
// ascending offset order with correct type and allocation state.
func TestCellWalkVisitsEveryCell(t *testing.T) {
	fs := newCellWalkHive(t)

	type visit struct {
		inum      common.InodeNumber
		cellType  CellType
		allocated bool
	}
	var visits []visit
	err := fs.CellWalk(context.Background(), fs.firstInum, fs.lastInum, 0,
		func(cell *Cell, userPtr any) common.WalkAction {
			visits = append(visits, visit{cell.Inum, cell.Type, cell.IsAllocated})
			return common.WalkContinue
		}, nil)
	require.NoError(t, err)

	expected := []visit{
		{HbinSize + 32, TypeNK, false},
		{HbinSize + 32 + 0x20, TypeNK, true},
		{HbinSize + 32 + 0x50, TypeVK, true},
		{2*HbinSize + 32, TypeSK, true},
	}
	assert.Equal(t, expected, visits)
}

// TestCellWalkAllocFilterSkipsFreeCells verifies the ALLOC filter excludes
// the free slack cell.
func TestCellWalkAllocFilterSkipsFreeCells(t *testing.T) {
	fs := newCellWalkHive(t)

	count := 0
	err := fs.CellWalk(context.Background(), fs.firstInum, fs.lastInum, common.WalkAlloc,
		func(cell *Cell, userPtr any) common.WalkAction {
			assert.True(t, cell.IsAllocated)
			count++
			return common.WalkContinue
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// TestCellWalkSubrangeDeliversOnlyInRangeCells: cells outside [startInum,
// endInum] are walked over but not delivered.
func TestCellWalkSubrangeDeliversOnlyInRangeCells(t *testing.T) {
	fs := newCellWalkHive(t)

	var visited []common.InodeNumber
	start := common.InodeNumber(HbinSize + 32 + 0x20)
	end := common.InodeNumber(HbinSize + 32 + 0x50)
	err := fs.CellWalk(context.Background(), start, end, 0,
		func(cell *Cell, userPtr any) common.WalkAction {
			visited = append(visited, cell.Inum)
			return common.WalkContinue
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, []common.InodeNumber{start, end}, visited)
}

// TestInodeWalkAdaptsCellsToInodeViews exercises the capability-record
// adapter: same traversal, generic views with META plus allocation flags.
func TestInodeWalkAdaptsCellsToInodeViews(t *testing.T) {
	fs := newCellWalkHive(t)

	var flagsSeen []common.BlockFlag
	err := fs.InodeWalk(context.Background(), fs.firstInum, fs.lastInum, 0,
		func(view common.InodeView, userPtr any) common.WalkAction {
			assert.True(t, view.Flags.Has(common.FlagMeta))
			flagsSeen = append(flagsSeen, view.Flags)
			return common.WalkContinue
		}, nil)
	require.NoError(t, err)

	require.Len(t, flagsSeen, 4)
	assert.True(t, flagsSeen[0].Has(common.FlagUnalloc))
	assert.True(t, flagsSeen[1].Has(common.FlagAlloc))
}

// TestCellWalkStopEndsEarly verifies STOP after the first cell is a
// successful early exit.
func TestCellWalkStopEndsEarly(t *testing.T) {
	fs := newCellWalkHive(t)

	count := 0
	err := fs.CellWalk(context.Background(), fs.firstInum, fs.lastInum, 0,
		func(cell *Cell, userPtr any) common.WalkAction {
			count++
			return common.WalkStop
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestCellWalkRejectsCellOverrunningHbin verifies a declared length running
// past the containing HBIN fails with INODE_COR and records a diagnostic
// row for the overrunning cell.
func TestCellWalkRejectsCellOverrunningHbin(t *testing.T) {
	image := testutil.NewRegistryImage(baseHiveSpec(), 3)
	testutil.WriteCell(image, HbinSize+32, true, 0xFF0, "nk") // 32+0xFF0 > 4096

	diag := &CSVDiagnostics{}
	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{Diagnostics: diag})
	require.NoError(t, err)
	defer fs.Close()

	err = fs.CellWalk(context.Background(), fs.firstInum, fs.lastInum, 0,
		func(cell *Cell, userPtr any) common.WalkAction {
			return common.WalkContinue
		}, nil)
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.InodeCorrupt, kind)

	require.Len(t, diag.Rows(), 1)
	assert.Equal(t, "cell-overrun", diag.Rows()[0].Kind)
	assert.EqualValues(t, HbinSize+32, diag.Rows()[0].Inum)
}

// TestCellWalkRejectsZeroLengthCell verifies a zeroed cell header (length 0)
// fails with INODE_COR instead of looping forever.
func TestCellWalkRejectsZeroLengthCell(t *testing.T) {
	image := testutil.NewRegistryImage(baseHiveSpec(), 3)

	fs, err := Open(testutil.NewImageReader(image), 0, OpenOptions{})
	require.NoError(t, err)
	defer fs.Close()

	err = fs.CellWalk(context.Background(), fs.firstInum, fs.lastInum, 0,
		func(cell *Cell, userPtr any) common.WalkAction {
			return common.WalkContinue
		}, nil)
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.InodeCorrupt, kind)
}

// TestCellWalkRejectsRangeBeyondHive verifies a start inum past the last
// hive byte fails with BLK_NUM.
func TestCellWalkRejectsRangeBeyondHive(t *testing.T) {
	fs := newCellWalkHive(t)

	err := fs.CellWalk(context.Background(), fs.lastInum+100, fs.lastInum+200, 0,
		func(cell *Cell, userPtr any) common.WalkAction {
			return common.WalkContinue
		}, nil)
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.BlockNumber, kind)
}
