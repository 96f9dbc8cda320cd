package jsonmerge_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/go-jsonmerge"
)

func TestReplay(t *testing.T) {
	base := mustParse(t, `{"items":["y"]}`)
	p1 := jsonmerge.Patch{{Op: jsonmerge.Add, Path: "/items/-", Value: jsonmerge.String("x")}}
	p2 := jsonmerge.Patch{
		{Op: jsonmerge.Replace, Path: "/items/0", Value: jsonmerge.String("z")},
		{Op: jsonmerge.Add, Path: "/count", Value: jsonmerge.Int(2)},
	}

	got, err := jsonmerge.Replay(base, []jsonmerge.Patch{p1, p2})
	require.NoError(t, err)

	step, err := jsonmerge.Apply(base, p1)
	require.NoError(t, err)
	assert.Equal(t, `{"items":["y","x"]}`, step.String())
	want, err := jsonmerge.Apply(step, p2)
	require.NoError(t, err)

	assert.True(t, jsonmerge.Equal(want, got), "got %s, want %s", got, want)
	assert.Equal(t, `{"items":["y"]}`, base.String())
}

func TestReplayEmpty(t *testing.T) {
	base := mustParse(t, `{"a":1}`)
	got, err := jsonmerge.Replay(base, nil)
	require.NoError(t, err)
	assert.True(t, jsonmerge.Equal(base, got))
}

func TestReplayFailure(t *testing.T) {
	base := mustParse(t, `{}`)
	patches := []jsonmerge.Patch{
		{{Op: jsonmerge.Add, Path: "/a", Value: jsonmerge.Int(1)}},
		{{Op: jsonmerge.Remove, Path: "/missing"}},
		{{Op: jsonmerge.Add, Path: "/b", Value: jsonmerge.Int(2)}},
	}
	got, err := jsonmerge.Replay(base, patches)
	require.Error(t, err)
	assert.True(t, got.IsNull(), "no partial result")

	var replayErr *jsonmerge.ReplayError
	require.True(t, errors.As(err, &replayErr))
	assert.Equal(t, 1, replayErr.Index)

	var opErr *jsonmerge.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, 0, opErr.Index)
	assert.ErrorIs(t, err, jsonmerge.ErrPathNotFound)
	assert.Equal(t, `{}`, base.String())
}

func TestReplayLog(t *testing.T) {
	data := []byte(`[
		{"seq": 1, "patch": [{"op":"add","path":"/n","value":1}]},
		{"seq": 4, "patch": [{"op":"replace","path":"/n","value":2}]},
		{"seq": 9, "patch": [{"op":"add","path":"/tags","value":[]},{"op":"add","path":"/tags/-","value":"t"}]}
	]`)
	entries, err := jsonmerge.DecodeLog(data)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(4), entries[1].Seq)

	got, err := jsonmerge.ReplayLog(mustParse(t, `{}`), entries)
	require.NoError(t, err)
	assert.Equal(t, `{"n":2,"tags":["t"]}`, got.String())
}

func TestReplayLogOutOfOrder(t *testing.T) {
	entries := []jsonmerge.LogEntry{
		{Seq: 2, Patch: jsonmerge.Patch{{Op: jsonmerge.Add, Path: "/a", Value: jsonmerge.Int(1)}}},
		{Seq: 2, Patch: jsonmerge.Patch{{Op: jsonmerge.Add, Path: "/b", Value: jsonmerge.Int(1)}}},
	}
	_, err := jsonmerge.ReplayLog(mustParse(t, `{}`), entries)
	assert.ErrorIs(t, err, jsonmerge.ErrOutOfOrder)
}

func TestDecodeLogRejectsInvalidOperations(t *testing.T) {
	_, err := jsonmerge.DecodeLog([]byte(`[{"seq":1,"patch":[{"op":"replace","path":"/a/-","value":1}]}]`))
	assert.ErrorIs(t, err, jsonmerge.ErrMalformedPatch)
	assert.ErrorIs(t, err, jsonmerge.ErrInvalidPath)

	_, err = jsonmerge.DecodeLog([]byte(`[{"seq":1,"patch":[{"op":"add","path":"/a"}]}]`))
	assert.ErrorIs(t, err, jsonmerge.ErrMissingValue)
}
