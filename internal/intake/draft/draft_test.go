// internal/intake/draft/draft_test.go
package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithField_DoesNotMutateReceiver(t *testing.T) {
	d := New()
	d.Clients = []Client{{ID: "c1", Name: "Original"}}

	updated, err := d.WithField("property.address", "500 Market St")
	require.NoError(t, err)
	assert.Equal(t, "500 Market St", updated.Property.Address)
	assert.Empty(t, d.Property.Address)

	updated, err = d.WithField("clients.c1.name", "Changed")
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.Clients[0].Name)
	assert.Equal(t, "Original", d.Clients[0].Name)

	updated, err = d.WithField("documents.deed", true)
	require.NoError(t, err)
	assert.True(t, updated.Documents["deed"])
	assert.False(t, d.Documents["deed"])
}

func TestWithField_UnknownPath(t *testing.T) {
	d := New()

	_, err := d.WithField("property.nope", "x")
	assert.Error(t, err)

	_, err = d.WithField("clients.missing.name", "x")
	assert.Error(t, err)

	_, err = d.WithField("clients.noleaf", "x")
	assert.Error(t, err)
}

func TestWithField_NormalizesEnums(t *testing.T) {
	d := New()

	updated, err := d.WithField("agentRole", "  listing_agent ")
	require.NoError(t, err)
	assert.Equal(t, RoleListingAgent, updated.AgentRole)

	d.Clients = []Client{{ID: "c1"}}
	updated, err = d.WithField("clients.c1.maritalStatus", "married")
	require.NoError(t, err)
	assert.Equal(t, MaritalMarried, updated.Clients[0].MaritalStatus)
}

func TestWithField_BoolCoercion(t *testing.T) {
	d := New()

	for _, raw := range []interface{}{true, "true", "TRUE", "1", "yes"} {
		updated, err := d.WithField("signature.termsAccepted", raw)
		require.NoError(t, err)
		assert.True(t, updated.Signature.TermsAccepted, "raw=%v", raw)
	}

	updated, err := d.WithField("signature.termsAccepted", "no")
	require.NoError(t, err)
	assert.False(t, updated.Signature.TermsAccepted)
}

func TestWithField_NumericValues(t *testing.T) {
	// Values posted as JSON numbers arrive as float64 and must store as plain
	// decimal strings, never exponent notation.
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"large integer", 4500000, "4500000"},
		{"fractional", 1250.5, "1250.5"},
		{"small", 6, "6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			updated, err := d.WithField("property.salePrice", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, updated.Property.SalePrice)
		})
	}
}

func TestValue_RoundTripsAndUnknownIsNil(t *testing.T) {
	d := New()
	updated, err := d.WithField("commission.totalPercent", "6")
	require.NoError(t, err)

	assert.Equal(t, "6", updated.Value("commission.totalPercent"))
	assert.Nil(t, updated.Value("commission.nonexistent"))
	assert.Equal(t, false, updated.Value("documents.deed"))
}

func TestClone_IsolatesSliceAndMap(t *testing.T) {
	d := New()
	d.Clients = []Client{{ID: "c1", Name: "A"}}
	d.Documents["deed"] = true

	c := d.Clone()
	c.Clients[0].Name = "B"
	c.Documents["deed"] = false

	assert.Equal(t, "A", d.Clients[0].Name)
	assert.True(t, d.Documents["deed"])
}

func TestInferredClientType(t *testing.T) {
	tests := []struct {
		role     AgentRole
		want     ClientType
		inferred bool
	}{
		{RoleListingAgent, ClientSeller, true},
		{RoleBuyersAgent, ClientBuyer, true},
		{RoleDualAgent, ClientBuyer, false},
		{AgentRole(""), ClientBuyer, false},
	}

	for _, tt := range tests {
		got, ok := tt.role.InferredClientType()
		assert.Equal(t, tt.want, got, "role %s", tt.role)
		assert.Equal(t, tt.inferred, ok, "role %s", tt.role)
	}
}

func TestNewClient_AssignsUniqueIDs(t *testing.T) {
	a := NewClient(ClientBuyer)
	b := NewClient(ClientBuyer)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, ClientBuyer, a.Type)
}

func TestStepByID(t *testing.T) {
	step, ok := StepByID(3)
	require.True(t, ok)
	assert.True(t, step.RequiresClients)

	_, ok = StepByID(TotalSteps + 1)
	assert.False(t, ok)
}
