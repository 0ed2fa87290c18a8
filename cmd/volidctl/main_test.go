package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "volid/internal/jwt_token"
)

const testSigningKey = "volidctl-test-signing-key"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VOLID_ENV", "test")
	t.Setenv("JWT_SIGNING_KEY", testSigningKey)
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--user", "admin-1", "--admin")
	require.NoError(t, err)

	claims, err := jwttoken.NewJWTService(testSigningKey, jwtIssuer, jwtAudience).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenCommandRequiresUser(t *testing.T) {
	_, err := execute(t, "token")
	require.Error(t, err)
}

func TestRenderSampleWritesPDF(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "card.pdf")

	out, err := execute(t, "render-sample", "--id", "vol0101261234", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+target)

	pdf, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestRenderSampleRejectsForeignIdentifier(t *testing.T) {
	_, err := execute(t, "render-sample", "--id", "ABC0101261234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a VOL identifier")
}

func TestMigrateNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := execute(t, "migrate")
	require.EqualError(t, err, "DATABASE_URL is required")
}
