package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundtrip(t *testing.T) {
	cases := []Request{
		{Command: CmdGet, Key: "hello"},
		{Command: CmdDelete, Key: "bye"},
		{Command: CmdInsert, Key: "k", Value: "v"},
		{Command: CmdUpdate, Key: "k", Value: "v2"},
	}

	for _, req := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteRequest(&buf, req))

		got, err := ReadRequest(bufio.NewReader(&buf))
		require.NoError(t, err)
		require.Equal(t, req, got)
	}
}

func TestResponseRoundtrip(t *testing.T) {
	cases := []Response{
		{Status: StatusOK, Value: "world"},
		{Status: StatusNotFound},
		{Status: StatusKeyExists},
		{Status: StatusError, Value: "boom"},
	}

	for _, resp := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteResponse(&buf, resp))

		got, err := ReadResponse(bufio.NewReader(&buf))
		require.NoError(t, err)
		require.Equal(t, resp, got)
	}
}

func TestReadRequestRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header)

	_, err := ReadRequest(bufio.NewReader(&buf))
	require.Error(t, err)
}

func TestReadRequestTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, Request{Command: CmdGet, Key: "k"}))
	full := buf.Bytes()

	_, err := ReadRequest(bufio.NewReader(bytes.NewReader(full[:len(full)-2])))
	require.Error(t, err)
}
