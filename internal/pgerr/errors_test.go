package pgerr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	catalogMiss := errors.New("process \"ndvi\": not found")
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ReferenceError{NodeID: "m_1", Kind: "from_node", Name: "lc"}, "reference"},
		{&SchemaError{ProcessID: "ndvi", Msg: "unknown process", Err: catalogMiss}, "schema"},
		{Structure("scope", "scope %s has %d result nodes", "root", 2), "structure"},
		{&IOError{Path: "pg.json", Err: fs.ErrNotExist}, "io"},
		{&ConfigError{Option: "sort", Msg: "unknown strategy"}, "config"},
		{fmt.Errorf("translate: %w", &ReferenceError{Msg: "x"}), "reference"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), "%v", tc.err)
	}
}

func TestErrorsUnwrapCause(t *testing.T) {
	catalogMiss := errors.New("not found")
	err := &SchemaError{ProcessID: "ndvi", Msg: "unknown process", Err: catalogMiss}
	assert.ErrorIs(t, err, ErrSchema)
	assert.ErrorIs(t, err, catalogMiss)
	assert.Equal(t, `schema error: process "ndvi": unknown process`, err.Error())

	ioErr := &IOError{Path: "pg.json", Err: fs.ErrNotExist}
	assert.ErrorIs(t, ioErr, fs.ErrNotExist)
	assert.Equal(t, "io error: pg.json: file does not exist", ioErr.Error())

	ref := &ReferenceError{NodeID: "m_1", Kind: "from_parameter", Name: "x"}
	assert.Equal(t, `reference error: node m_1: undefined from_parameter "x"`, ref.Error())
	assert.False(t, errors.Is(ref, ErrSchema))
}
