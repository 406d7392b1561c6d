package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/all2prosperity/audio-svc/internal/auth"
)

func TestTokenCommand(t *testing.T) {
	cfg.JWTSecret = "s3cret"
	t.Cleanup(func() {
		cfg.JWTSecret = ""
		tokenUser, tokenDevice = "", ""
	})

	var out bytes.Buffer
	tokenCmd.SetOut(&out)
	tokenCmd.SetArgs([]string{"--device", "dev-1"})
	require.NoError(t, tokenCmd.Execute())

	signer, err := auth.NewSigner("s3cret")
	require.NoError(t, err)
	claims, err := signer.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDevice, claims.Role)
	assert.Equal(t, "dev-1", claims.DeviceID)
}

func TestTokenCommand_RequiresSubject(t *testing.T) {
	cfg.JWTSecret = "s3cret"
	t.Cleanup(func() { cfg.JWTSecret = "" })
	tokenUser, tokenDevice = "", ""

	tokenCmd.SetArgs([]string{})
	assert.Error(t, tokenCmd.Execute())
}
