package setiter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlearchive/graphd-sub006/common"
)

func TestPSumSubsumesRequiresSubsumerToLockSomething(t *testing.T) {
	id := func(v uint64) *common.ID { x := common.ID(v); return &x }

	empty := PSum{Complete: true}
	require.False(t, empty.Subsumes(empty),
		"two psums that lock nothing must not vacuously subsume each other")

	locked := PSum{Complete: true, TypeGUID: id(1)}
	require.True(t, locked.Subsumes(PSum{Complete: true}),
		"a locked psum subsumes a psum locking nothing")
	require.False(t, PSum{Complete: true}.Subsumes(locked),
		"a psum locking nothing cannot subsume one that locks a field")
}

func TestPSumSubsumesMatchesLockedFields(t *testing.T) {
	id := func(v uint64) *common.ID { x := common.ID(v); return &x }

	wide := PSum{Complete: true, TypeGUID: id(1)}
	narrow := PSum{Complete: true, TypeGUID: id(1), Left: id(2)}

	require.True(t, narrow.Subsumes(wide), "narrow fixes everything wide fixes, plus more")
	require.False(t, wide.Subsumes(narrow), "wide does not fix narrow's Left")

	mismatched := PSum{Complete: true, TypeGUID: id(9)}
	require.False(t, narrow.Subsumes(mismatched))
	require.False(t, mismatched.Subsumes(narrow))
}

func TestPSumSubsumesRequiresComplete(t *testing.T) {
	id := func(v uint64) *common.ID { x := common.ID(v); return &x }
	p := PSum{TypeGUID: id(1)}
	require.False(t, p.Subsumes(p), "an incomplete psum never subsumes, even itself")
}
