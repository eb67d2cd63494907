package doccontext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("accepts pdf", func(t *testing.T) {
		assert.NoError(t, policy.Validate(Upload{MIMEType: "application/pdf", SizeBytes: 100}))
	})

	t.Run("accepts pdf variant types", func(t *testing.T) {
		assert.NoError(t, policy.Validate(Upload{MIMEType: "application/x-pdf", SizeBytes: 100}))
	})

	t.Run("rejects other types", func(t *testing.T) {
		err := policy.Validate(Upload{MIMEType: "text/plain", SizeBytes: 100})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("rejects oversized declared size", func(t *testing.T) {
		err := policy.Validate(Upload{MIMEType: "application/pdf", SizeBytes: DefaultMaxSizeBytes + 1})
		assert.Error(t, err)
	})

	t.Run("rejects oversized payload regardless of declared size", func(t *testing.T) {
		policy := Policy{MaxSizeBytes: 4, MIMEKeywords: []string{"pdf"}}
		err := policy.Validate(Upload{MIMEType: "application/pdf", SizeBytes: 1, Data: []byte("12345")})
		assert.Error(t, err)
	})

	t.Run("size at ceiling accepted", func(t *testing.T) {
		assert.NoError(t, policy.Validate(Upload{MIMEType: "application/pdf", SizeBytes: DefaultMaxSizeBytes}))
	})
}

func TestLoadPolicy(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		policy, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultPolicy(), policy)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yml")
		content := "max_size_bytes: 1048576\nmime_keywords:\n  - pdf\n  - text\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		policy, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, int64(1048576), policy.MaxSizeBytes)
		assert.Equal(t, []string{"pdf", "text"}, policy.MIMEKeywords)
	})

	t.Run("invalid yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yml")
		require.NoError(t, os.WriteFile(path, []byte("max_size_bytes: ["), 0o644))

		_, err := LoadPolicy(path)
		assert.Error(t, err)
	})
}
