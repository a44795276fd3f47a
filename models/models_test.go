package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	t.Run("keeps provided names", func(t *testing.T) {
		acct := NewAccount("ada@example.com", "Ada", "Lovelace", RoleClient)

		assert.Equal(t, "ada@example.com", acct.Email)
		require.NotNil(t, acct.FirstName)
		require.NotNil(t, acct.LastName)
		assert.Equal(t, "Ada", *acct.FirstName)
		assert.Equal(t, "Lovelace", *acct.LastName)
		assert.Equal(t, RoleClient, acct.Role)
		assert.False(t, acct.IsAdmin())
	})

	t.Run("blank names become null", func(t *testing.T) {
		acct := NewAccount("root@example.com", "", "  ", RoleAdmin)

		assert.Nil(t, acct.FirstName)
		assert.Nil(t, acct.LastName)
		assert.True(t, acct.IsAdmin())
	})
}

func TestAccount_TableName(t *testing.T) {
	assert.Equal(t, "accounts", Account{}.TableName())
}

func TestAccountRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleClient.Valid())
	assert.False(t, AccountRole("owner").Valid())
}

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"a@Example.COM", "example.com"},
		{"weird@name@corp.io", "corp.io"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, EmailDomain(tt.email))
		})
	}
}

func TestAccount_JSONView(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	acct := Account{
		ID:        7,
		Email:     "ada@example.com",
		FirstName: OptionalString("Ada"),
		Role:      RoleClient,
		CreatedAt: created,
		UpdatedAt: created,
	}

	data, err := json.Marshal(acct)
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &view))

	assert.Equal(t, float64(7), view["id"])
	assert.Equal(t, "Ada", view["first_name"])
	assert.Nil(t, view["last_name"])
	assert.Contains(t, view, "last_name")
	assert.Equal(t, "client", view["role"])
	assert.Equal(t, "2024-05-01T10:00:00Z", view["created_at"])
}
