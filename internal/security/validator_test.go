package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellexec/internal/config"
)

func newTestValidator() *Validator {
	return NewValidator(config.DefaultConfig().Security)
}

func TestValidate_LengthCap(t *testing.T) {
	cfg := config.DefaultConfig().Security
	cfg.MaxCodeLength = 10
	v := NewValidator(cfg)

	t.Run("exactly at cap accepted", func(t *testing.T) {
		src := "x := 12345" // 10 bytes
		require.Len(t, src, 10)
		_, err := v.Validate(src)
		assert.NoError(t, err)
	})

	t.Run("one over rejected", func(t *testing.T) {
		src := "x := 123456" // 11 bytes
		require.Len(t, src, 11)
		_, err := v.Validate(src)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum length")
	})
}

func TestValidate_SyntaxError(t *testing.T) {
	v := newTestValidator()
	_, err := v.Validate("x := := 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestValidate_BlockedImport(t *testing.T) {
	v := newTestValidator()

	t.Run("blocked root", func(t *testing.T) {
		_, err := v.Validate("import \"os\"\nx := 1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed import: os")
	})

	t.Run("blocked subpackage by root", func(t *testing.T) {
		_, err := v.Validate("import \"os/exec\"\nx := 1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed import: os/exec")
	})

	t.Run("blocked wins over allowlist message", func(t *testing.T) {
		_, err := v.Validate("import \"net/http\"\nx := 1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed import")
	})
}

func TestValidate_AllowlistWins(t *testing.T) {
	v := newTestValidator()

	t.Run("unknown import rejected", func(t *testing.T) {
		_, err := v.Validate("import \"database/sql\"\nx := 1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import not permitted: database/sql")
	})

	t.Run("allowed imports pass", func(t *testing.T) {
		for _, path := range []string{"strings", "encoding/json", "math", "ui", "charts"} {
			_, err := v.Validate("import \"" + path + "\"\nx := 1")
			assert.NoError(t, err, "import %q", path)
		}
	})
}

func TestValidate_DynamicEval(t *testing.T) {
	v := newTestValidator()

	for _, callee := range []string{"eval", "exec"} {
		_, err := v.Validate(callee + "(\"1+1\")")
		require.Error(t, err, callee)
		assert.Contains(t, err.Error(), "dynamic evaluation")
	}

	t.Run("selector calls pass", func(t *testing.T) {
		_, err := v.Validate("import \"strings\"\nstrings.ToUpper(\"eval\")")
		assert.NoError(t, err)
	})
}

func TestValidate_ReturnsAnalysis(t *testing.T) {
	v := newTestValidator()
	a, err := v.Validate("x := 41\nx + 1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.TrailingExpr)
	assert.Equal(t, []string{"x"}, a.AssignedNames)
}

func TestSetMaxCodeLength(t *testing.T) {
	v := newTestValidator()
	src := "x := 1234567890"

	_, err := v.Validate(src)
	require.NoError(t, err)

	v.SetMaxCodeLength(5)
	_, err = v.Validate(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length")
}

func TestValidate_OrderLengthBeforeParse(t *testing.T) {
	cfg := config.DefaultConfig().Security
	cfg.MaxCodeLength = 5
	v := NewValidator(cfg)

	// Oversized and syntactically broken: the length rejection must win.
	_, err := v.Validate(strings.Repeat(":", 20))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length")
}
