package machine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salmon-lang/salmon/lang/machine"
)

func TestTableSetGetDelete(t *testing.T) {
	tbl := machine.NewTable(4)
	_, ok := tbl.Get("x")
	require.False(t, ok)

	isNew := tbl.Set("x", machine.Number(1))
	require.True(t, isNew)

	v, ok := tbl.Get("x")
	require.True(t, ok)
	require.Equal(t, machine.Number(1), v)

	isNew = tbl.Set("x", machine.Number(2))
	require.False(t, isNew)

	require.True(t, tbl.Delete("x"))
	_, ok = tbl.Get("x")
	require.False(t, ok)
}

func TestTableAddAllCopiesEntries(t *testing.T) {
	super := machine.NewTable(4)
	super.Set("greet", machine.Number(1))
	sub := machine.NewTable(4)
	sub.Set("greet", machine.Number(99))
	sub.Set("own", machine.Number(2))

	// INHERIT copies superclass methods into the subclass table; entries
	// the subclass already has (from methods defined after `< Super`) win.
	merged := machine.NewTable(4)
	merged.AddAll(super)
	merged.AddAll(sub)

	v, _ := merged.Get("greet")
	require.Equal(t, machine.Number(99), v)
	v, _ = merged.Get("own")
	require.Equal(t, machine.Number(2), v)
}
