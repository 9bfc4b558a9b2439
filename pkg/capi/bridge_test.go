package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/abengine/pkg/api"
	"github.com/yourusername/abengine/pkg/engine"
)

func TestBridgeRequiresInit(t *testing.T) {
	shutdownEngine()
	_, err := searchJSON("tictactoe", "", 1)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.ErrorIs(t, clearCache(), errNotInitialized)
}

func TestBridgeSearch(t *testing.T) {
	require.NoError(t, initEngine("log:\n  level: error\n"))
	defer shutdownEngine()

	out, err := searchJSON("tictactoe", "XX./OO./...", 2)
	require.NoError(t, err)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1.0, resp.Evaluation)
	assert.NotEmpty(t, resp.BestMove)

	out, err = iterateJSON("tictactoe", "XX./OO./...", 3, time.Second)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.GreaterOrEqual(t, resp.DepthReached, 1)

	assert.NoError(t, clearCache())
}

func TestBridgeIterateSingleDepth(t *testing.T) {
	require.NoError(t, initEngine("log:\n  level: error\n"))
	defer shutdownEngine()

	out, err := iterateJSON("tictactoe", "XX./OO./...", 1, time.Second)
	require.NoError(t, err)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1.0, resp.Evaluation)
	assert.NotEmpty(t, resp.BestMove)
}

func TestBridgeErrors(t *testing.T) {
	assert.Error(t, initEngine("search:\n  depth: 0\n"))

	require.NoError(t, initEngine(""))
	defer shutdownEngine()

	_, err := searchJSON("chess", "", 1)
	assert.Error(t, err)
	_, err = iterateJSON("tictactoe", "", 0, 0)
	assert.ErrorIs(t, err, engine.ErrBadDepth)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(errorJSON(err)), &body))
	assert.NotEmpty(t, body["error"])
}
