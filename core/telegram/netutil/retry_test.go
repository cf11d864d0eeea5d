package netutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	wrapped := &url.Error{Op: "Post", URL: "https://api.telegram.org/sendPhoto", Err: dial}

	require.False(t, ShouldRetry(nil))
	require.False(t, ShouldRetry(errors.New("bad request")))
	require.True(t, ShouldRetry(dial))
	require.True(t, ShouldRetry(wrapped))
	require.True(t, ShouldRetry(fmt.Errorf("send: %w", wrapped)))
	require.False(t, ShouldRetry(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset")}))
}
