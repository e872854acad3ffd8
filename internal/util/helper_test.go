package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneSlice(t *testing.T) {
	require := require.New(t)

	src := []byte{1, 2, 3}

	clone := CloneSlice(src, 0)
	require.Equal(src, clone)

	src[0] = 99
	require.Equal(byte(1), clone[0])

	padded := CloneSlice([]byte{1, 2}, 4)
	require.Equal([]byte{1, 2, 0, 0}, padded)

	empty := CloneSlice[byte](nil, 0)
	require.Empty(empty)
	require.NotNil(empty)
}
