package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatlink/internal/config"
)

var testAuthCfg = config.AuthConfig{
	JWTSecretKey: "test-secret-key",
	JWTExpiry:    time.Hour,
}

// fakeBlacklist revokes a fixed set of jtis.
type fakeBlacklist struct {
	revoked map[string]bool
}

func (f *fakeBlacklist) Add(ctx context.Context, jti string, expiry time.Time) error {
	if f.revoked == nil {
		f.revoked = make(map[string]bool)
	}
	f.revoked[jti] = true
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(42, "alice", testAuthCfg)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := ValidateToken(context.Background(), token, testAuthCfg.JWTSecretKey, nil)
	req.NoError(err)
	req.EqualValues(42, claims.UserID)
	req.Equal("alice", claims.Name)
	req.NotEmpty(claims.ID)
	req.NotNil(claims.ExpiresAt)
}

func TestValidateToken_WrongKey(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(42, "alice", testAuthCfg)
	req.NoError(err)

	_, err = ValidateToken(context.Background(), token, "some-other-key", nil)
	req.Error(err)
}

func TestValidateToken_Expired(t *testing.T) {
	req := require.New(t)

	expiredCfg := config.AuthConfig{
		JWTSecretKey: testAuthCfg.JWTSecretKey,
		JWTExpiry:    -time.Minute,
	}
	token, err := GenerateToken(42, "alice", expiredCfg)
	req.NoError(err)

	_, err = ValidateToken(context.Background(), token, testAuthCfg.JWTSecretKey, nil)
	req.Error(err)
}

func TestValidateToken_RevokedByBlacklist(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	token, err := GenerateToken(42, "alice", testAuthCfg)
	req.NoError(err)

	claims, err := ValidateToken(ctx, token, testAuthCfg.JWTSecretKey, nil)
	req.NoError(err)

	blacklist := &fakeBlacklist{}
	req.NoError(blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time))

	_, err = ValidateToken(ctx, token, testAuthCfg.JWTSecretKey, blacklist)
	req.Error(err)
}

func TestPasswordHashing(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("hunter22")
	req.NoError(err)
	req.NotEqual("hunter22", hash)

	req.True(CheckPasswordHash("hunter22", hash))
	req.False(CheckPasswordHash("wrong", hash))
}
