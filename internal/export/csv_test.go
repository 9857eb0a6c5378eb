package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/domain"
)

func TestWriteTicketsQuotesEmbeddedCommas(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteTickets(&buf, []domain.Ticket{{
		ID:          "t1",
		ExternalKey: "TCK-1",
		Title:       `Boleto, segunda via "urgente"`,
		Status:      domain.TicketStatusNew,
		Priority:    domain.TicketPriorityP2,
		TicketType:  domain.TicketTypeCollection,
		Source:      domain.TicketSourceWhatsApp,
		CreatedAt:   created,
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ticketHeader, records[0])
	assert.Equal(t, `Boleto, segunda via "urgente"`, records[1][2])
	assert.Equal(t, "", records[1][7])
	assert.Equal(t, "false", records[1][10])
	assert.Equal(t, "2026-01-02T03:04:05Z", records[1][11])
}

func TestWriteLeads(t *testing.T) {
	company := "ACME, Ltda"
	var buf bytes.Buffer
	require.NoError(t, WriteLeads(&buf, []domain.Lead{{
		ID: "l1", Kind: domain.LeadKindPJ, Name: "Ana", Company: &company,
		Stage: domain.StageWon, Value: 1234.5, Concluded: true,
	}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ACME, Ltda", records[1][3])
	assert.Equal(t, "1234.50", records[1][7])
	assert.Equal(t, "true", records[1][9])
}

func TestWriteEmptySetHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeads(&buf, nil))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
