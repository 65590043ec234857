package types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretStringRedaction(t *testing.T) {
	secret := SecretString("sk-very-secret")

	assert.Equal(t, "***REDACTED***", secret.String())
	assert.Equal(t, "***REDACTED***", fmt.Sprintf("%v", secret))
	assert.Equal(t, "***REDACTED***", fmt.Sprintf("%s", secret))
	assert.Equal(t, "sk-very-secret", secret.Unmask())
}

func TestSecretStringJSON(t *testing.T) {
	payload := struct {
		Token SecretString `json:"token"`
	}{Token: "sk-very-secret"}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"***REDACTED***"}`, string(data))
}
