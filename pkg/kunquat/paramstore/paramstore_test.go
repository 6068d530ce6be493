package paramstore_test

import (
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/paramstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndSetWithWildcard(t *testing.T) {
	r := paramstore.New(nil)
	var gotIndex int
	var gotRaw string

	err := r.Register("au_XX/p_name.json", paramstore.KindComposite, func(idx [paramstore.KeyIndicesMax]int, raw []byte) error {
		gotIndex = idx[0]
		gotRaw = string(raw)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, r.Set("au_1a/p_name.json", []byte(`"lead"`)))
	assert.Equal(t, 0x1a, gotIndex)
	assert.Equal(t, `"lead"`, gotRaw)
}

func TestUnknownKeyIsSilentlyIgnored(t *testing.T) {
	r := paramstore.New(nil)
	err := r.Set("not_a_valid_key", nil)
	assert.NoError(t, err)
}

func TestSetterErrorPropagates(t *testing.T) {
	r := paramstore.New(nil)
	require.NoError(t, r.Register("global/p_volume.jsonf", paramstore.KindFloat, func(idx [paramstore.KeyIndicesMax]int, raw []byte) error {
		return assert.AnError
	}))
	err := r.Set("global/p_volume.jsonf", []byte("1.0"))
	assert.Error(t, err)
}
