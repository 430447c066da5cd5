package registry

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujinfu/dfs/pkg/errtypes"
)

type fakeData struct{ addr string }

func (f fakeData) Size(string) (int64, error)                { return 0, nil }
func (f fakeData) Read(string, int64, int64) ([]byte, error) { return nil, nil }
func (f fakeData) Write(string, int64, []byte) error         { return nil }
func (f fakeData) Addr() string                              { return f.addr }

type fakeCommand struct{ addr string }

func (f fakeCommand) Create(string, bool) (bool, error) { return true, nil }
func (f fakeCommand) Delete(string) (bool, error)        { return true, nil }
func (f fakeCommand) Addr() string                       { return f.addr }

func newRegistry() *Registry {
	return New(zerolog.Nop())
}

func TestRegisterRejectsNilStubs(t *testing.T) {
	r := newRegistry()
	_, err := r.Register(nil, fakeCommand{addr: "a"}, 10)
	require.Error(t, err)
	_, ok := err.(errtypes.IsIllegalArgument)
	assert.True(t, ok)
}

func TestRegisterRejectsDuplicatePair(t *testing.T) {
	r := newRegistry()
	_, err := r.Register(fakeData{addr: "a"}, fakeCommand{addr: "a"}, 10)
	require.NoError(t, err)

	_, err = r.Register(fakeData{addr: "a"}, fakeCommand{addr: "a"}, 10)
	require.Error(t, err)
}

func TestChooseLargestCapacity(t *testing.T) {
	r := newRegistry()
	_, err := r.Register(fakeData{addr: "a"}, fakeCommand{addr: "a"}, 10)
	require.NoError(t, err)
	regB, err := r.Register(fakeData{addr: "b"}, fakeCommand{addr: "b"}, 20)
	require.NoError(t, err)

	chosen, err := r.Choose()
	require.NoError(t, err)
	assert.Equal(t, regB.ID, chosen.ID)
}

func TestChooseNoneRegistered(t *testing.T) {
	r := newRegistry()
	_, err := r.Choose()
	assert.Equal(t, ErrNoStorageAvailable, err)
}

func TestRemove(t *testing.T) {
	r := newRegistry()
	reg, err := r.Register(fakeData{addr: "a"}, fakeCommand{addr: "a"}, 10)
	require.NoError(t, err)

	assert.True(t, r.Remove(reg.ID))
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Remove(reg.ID))
}
