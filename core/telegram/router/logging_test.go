package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestNormalizeHandlerName(t *testing.T) {
	require.Equal(t, "start", normalizeHandlerName("/start"))
	require.Equal(t, "send_to_all", normalizeHandlerName(" /Send_To_All "))
	require.Equal(t, "unknown", normalizeHandlerName(""))
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "queue full" }

func TestDeriveErrorCode(t *testing.T) {
	require.Empty(t, deriveErrorCode(nil))
	require.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	require.Equal(t, "QUEUE_FULL", deriveErrorCode(fmt.Errorf("send: %w", codedErr{})))

	blocked := &tele.Error{Code: 403, Description: "Forbidden"}
	require.Equal(t, "TG_403", deriveErrorCode(fmt.Errorf("send photo: %w", blocked)))
}
