package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
)

// TestBlockWalkVisitsEveryHbin walks both HBIN pages of a two-HBIN hive and
// expects each delivered once, in ascending order, as ALLOC|META|CONT|RAW.
func TestBlockWalkVisitsEveryHbin(t *testing.T) {
	_, fs := newTwoHbinHive(t)

	var visited []common.SectorID
	err := fs.BlockWalk(context.Background(), 1, 3, 0,
		func(view common.BlockView, userPtr any) common.WalkAction {
			visited = append(visited, view.Addr)
			assert.Len(t, view.Data, HbinSize)
			assert.True(t, view.Flags.Has(common.FlagAlloc))
			assert.True(t, view.Flags.Has(common.FlagMeta))
			assert.True(t, view.Flags.Has(common.FlagCont))
			assert.True(t, view.Flags.Has(common.FlagRaw))
			return common.WalkContinue
		}, nil)
	require.NoError(t, err)

	assert.Equal(t, []common.SectorID{1, 2}, visited)
}

// TestBlockWalkStopEndsEarlyWithoutError verifies callback STOP is a
// successful early exit.
func TestBlockWalkStopEndsEarlyWithoutError(t *testing.T) {
	_, fs := newTwoHbinHive(t)

	count := 0
	err := fs.BlockWalk(context.Background(), 1, 3, 0,
		func(view common.BlockView, userPtr any) common.WalkAction {
			count++
			return common.WalkStop
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestBlockWalkCallbackErrorFails verifies callback ERROR surfaces as an
// operation failure.
func TestBlockWalkCallbackErrorFails(t *testing.T) {
	_, fs := newTwoHbinHive(t)

	err := fs.BlockWalk(context.Background(), 1, 3, 0,
		func(view common.BlockView, userPtr any) common.WalkAction {
			return common.WalkError
		}, nil)
	require.Error(t, err)
}

// TestBlockWalkRejectsOutOfRange verifies an end index past the last HBIN
// page fails with WALK_RNG.
func TestBlockWalkRejectsOutOfRange(t *testing.T) {
	_, fs := newTwoHbinHive(t)

	err := fs.BlockWalk(context.Background(), 1, 4, 0,
		func(view common.BlockView, userPtr any) common.WalkAction {
			return common.WalkContinue
		}, nil)
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.WalkRange, kind)
}

// TestBlockWalkMetaFilterSkipsNothing confirms the META filter never
// excludes an HBIN, since every HBIN carries the full classification.
func TestBlockWalkMetaFilterSkipsNothing(t *testing.T) {
	_, fs := newTwoHbinHive(t)

	count := 0
	err := fs.BlockWalk(context.Background(), 1, 3, common.WalkMeta|common.WalkCont,
		func(view common.BlockView, userPtr any) common.WalkAction {
			count++
			return common.WalkContinue
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestBlockGetFlagsClassification checks the single-block classifier and
// its range check.
func TestBlockGetFlagsClassification(t *testing.T) {
	_, fs := newTwoHbinHive(t)

	flags, err := fs.BlockGetFlags(2)
	require.NoError(t, err)
	assert.Equal(t, common.FlagAlloc|common.FlagMeta|common.FlagCont, flags)

	_, err = fs.BlockGetFlags(3)
	require.Error(t, err)
	kind, ok := fserrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fserrors.BlockNumber, kind)
}
