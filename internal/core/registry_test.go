package core

import (
	"errors"
	"testing"

	"healthmate/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(newTestService(newFakeGateway(nil), HospitalSourceStatic, nil))

	a := r.Create(pkg.LangEnglish)
	b := r.Create(pkg.LangHindi)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Len())

	got, err := r.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, pkg.LangHindi, got.Snapshot().Language)

	r.Delete(a.ID)
	_, err = r.Get(a.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	r.Delete("missing")
	assert.Equal(t, 1, r.Len())
}
