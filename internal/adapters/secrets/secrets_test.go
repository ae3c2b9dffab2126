package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stripe"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stripe", "plain"), []byte("sk_test_plain\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stripe", "doc.json"), []byte(`{"value":"sk_test_json","version":"3"}`), 0o600))

	source := NewLocalSource(dir, zap.NewNop())

	t.Run("plain text is trimmed", func(t *testing.T) {
		secret, err := source.GetSecret(context.Background(), "stripe/plain")
		require.NoError(t, err)
		assert.Equal(t, "sk_test_plain", secret.Value)
	})

	t.Run("json document", func(t *testing.T) {
		secret, err := source.GetSecret(context.Background(), "stripe/doc.json")
		require.NoError(t, err)
		assert.Equal(t, "sk_test_json", secret.Value)
		assert.Equal(t, "3", secret.Version)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := source.GetSecret(context.Background(), "stripe/none")
		assert.ErrorContains(t, err, "secret not found")
	})

	t.Run("cannot escape base path", func(t *testing.T) {
		outside := filepath.Join(filepath.Dir(dir), "escape-secret")
		_ = os.WriteFile(outside, []byte("leak"), 0o600)
		t.Cleanup(func() { _ = os.Remove(outside) })

		_, err := source.GetSecret(context.Background(), "../escape-secret")
		assert.Error(t, err)
	})
}

func TestEnvSource(t *testing.T) {
	t.Setenv("TEST_GATEWAY_KEY", "sk_env")

	secret, err := EnvSource{}.GetSecret(context.Background(), "TEST_GATEWAY_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk_env", secret.Value)

	_, err = EnvSource{}.GetSecret(context.Background(), "TEST_GATEWAY_KEY_UNSET")
	assert.Error(t, err)
}

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) GetSecret(_ context.Context, path string) (*ports.Secret, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ports.Secret{Value: "value-of-" + path}, nil
}

func TestCachedSource(t *testing.T) {
	backing := &countingSource{}
	cached := NewCachedSource(backing, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		secret, err := cached.GetSecret(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "value-of-a", secret.Value)
	}
	assert.Equal(t, 1, backing.calls)

	cached.Invalidate("a")
	_, err := cached.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedSource_FailuresNotCached(t *testing.T) {
	backing := &countingSource{err: errors.New("vault sealed")}
	cached := NewCachedSource(backing, time.Minute, zap.NewNop())

	_, err := cached.GetSecret(context.Background(), "a")
	require.Error(t, err)

	backing.err = nil
	secret, err := cached.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "value-of-a", secret.Value)
	assert.Equal(t, 2, backing.calls)
}

func TestGatewayKey(t *testing.T) {
	backing := &countingSource{}

	key, err := GatewayKey{Literal: "sk_literal", Path: "p", Source: backing}.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk_literal", key)
	assert.Zero(t, backing.calls)

	key, err = GatewayKey{Path: "stripe/api-key", Source: backing}.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "value-of-stripe/api-key", key)

	_, err = GatewayKey{}.APIKey(context.Background())
	assert.Error(t, err)
}

func TestGatewayKey_InvalidateKey(t *testing.T) {
	backing := &countingSource{}
	key := GatewayKey{Path: "stripe/api-key", Source: NewCachedSource(backing, time.Minute, zap.NewNop())}

	for i := 0; i < 2; i++ {
		_, err := key.APIKey(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backing.calls)

	key.InvalidateKey()
	_, err := key.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)

	// Literal keys and uncached sources are left alone
	GatewayKey{Literal: "sk"}.InvalidateKey()
	GatewayKey{Path: "p", Source: backing}.InvalidateKey()
}

type fakeSecretsManager struct {
	out *secretsmanager.GetSecretValueOutput
	err error
	ids []string
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.ids = append(f.ids, aws.ToString(in.SecretId))
	return f.out, f.err
}

func TestAWSSource(t *testing.T) {
	fake := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String("sk_aws"),
		VersionId:    aws.String("v7"),
		ARN:          aws.String("arn:aws:secretsmanager:us-east-1:1:secret:stripe"),
	}}
	source := &AWSSource{client: fake, logger: zap.NewNop()}

	secret, err := source.GetSecret(context.Background(), "stripe/api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk_aws", secret.Value)
	assert.Equal(t, "v7", secret.Version)
	assert.Equal(t, "arn:aws:secretsmanager:us-east-1:1:secret:stripe", secret.Metadata["arn"])
	assert.Equal(t, []string{"stripe/api-key"}, fake.ids)

	fake.err = errors.New("AccessDenied")
	_, err = source.GetSecret(context.Background(), "stripe/api-key")
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestParseKVv2(t *testing.T) {
	secret, err := parseKVv2("stripe", map[string]interface{}{
		"data":     map[string]interface{}{"value": "sk_vault"},
		"metadata": map[string]interface{}{"version": json.Number("4"), "created_time": "2024-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sk_vault", secret.Value)
	assert.Equal(t, "4", secret.Version)
	assert.Equal(t, "2024-01-01T00:00:00Z", secret.Metadata["created_time"])

	_, err = parseKVv2("stripe", map[string]interface{}{"data": map[string]interface{}{}})
	assert.Error(t, err)

	_, err = parseKVv2("stripe", map[string]interface{}{})
	assert.Error(t, err)
}
