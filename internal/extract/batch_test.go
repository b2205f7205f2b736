package extract

import (
	"testing"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileDoc(name, id, income string) models.Document {
	return models.Document{
		Name: name,
		Text: "Client Name: Test Client | Client ID: " + id + "\n" + ProfileMarker + "\nAnnual Income: " + income + "\n",
	}
}

func TestExtractBatchBackfillsUnresolvedTransactions(t *testing.T) {
	e := NewExtractor(testLogger())
	docs := []models.Document{
		loadDoc(t, "bank_statement_lines.txt"),
		loadDoc(t, "loan_profile_plain.txt"),
	}

	batch, err := e.ExtractBatch(docs)
	require.NoError(t, err)

	assert.Equal(t, "C-2041", batch.Profile.ClientID)
	assert.Equal(t, "loan_profile_plain.txt", batch.ProfileFrom)
	require.Len(t, batch.Transactions, 3)
	for _, tx := range batch.Transactions {
		assert.Equal(t, "C-2041", tx.ClientID)
	}
	require.Len(t, batch.Statements, 1)
	assert.Equal(t, "C-2041", batch.Statements[0].ClientID)

	// the per-document view is left untouched
	for _, tx := range batch.Documents[0].Transactions {
		assert.Empty(t, tx.ClientID)
	}
}

func TestExtractBatchNoProfile(t *testing.T) {
	e := NewExtractor(testLogger())
	batch, err := e.ExtractBatch([]models.Document{
		loadDoc(t, "bank_statement_quoted.txt"),
		{Name: "memo.txt", Text: "nothing to see"},
	})

	require.ErrorIs(t, err, ErrNoProfileExtracted)
	assert.Len(t, batch.Documents, 2)
	assert.Len(t, batch.Transactions, 6)
}

func TestExtractBatchProfileWithoutIDIsNotUsable(t *testing.T) {
	e := NewExtractor(testLogger())
	_, err := e.ExtractBatch([]models.Document{
		{Name: "anon", Text: ProfileMarker + "\nAnnual Income: $50,000\n"},
	})
	assert.ErrorIs(t, err, ErrNoProfileExtracted)
}

func TestExtractBatchFirstProfileWins(t *testing.T) {
	e := NewExtractor(testLogger())
	batch, err := e.ExtractBatch([]models.Document{
		profileDoc("a", "11", "$50,000"),
		profileDoc("b", "11", "$99,000"),
	})

	require.NoError(t, err)
	assert.Equal(t, 50000.0, batch.Profile.AnnualIncome)
	assert.Equal(t, "a", batch.ProfileFrom)
	assert.Empty(t, batch.ConflictingClientIDs)
}

func TestExtractBatchAmbiguousClients(t *testing.T) {
	e := NewExtractor(testLogger())
	batch, err := e.ExtractBatch([]models.Document{
		profileDoc("a", "11", "$50,000"),
		profileDoc("b", "12", "$60,000"),
		profileDoc("c", "12", "$60,000"),
	})

	require.ErrorIs(t, err, ErrAmbiguousClientBatch)
	assert.Equal(t, []string{"12"}, batch.ConflictingClientIDs)
}

func TestExtractBatchOrdersByDateThenDocumentOrder(t *testing.T) {
	e := NewExtractor(testLogger())
	later := models.Document{Name: "s1", Text: TransactionMarker + "\n" +
		"2025-03-05  Late Entry  DEBIT  $5.00  $95.00\n" +
		"2025-03-01  Same Day A  DEBIT  $1.00  $99.00\n"}
	earlier := models.Document{Name: "s2", Text: TransactionMarker + "\n" +
		"2025-03-01  Same Day B  CREDIT  $2.00  $101.00\n"}

	batch, err := e.ExtractBatch([]models.Document{later, earlier, profileDoc("p", "4", "$1")})
	require.NoError(t, err)

	var got []string
	for _, tx := range batch.Transactions {
		got = append(got, tx.Description)
	}
	assert.Equal(t, []string{"Same Day A", "Same Day B", "Late Entry"}, got)
}

func TestPartitionByClient(t *testing.T) {
	a1 := profileDoc("a1", "1", "$1")
	b1 := profileDoc("b1", "2", "$1")
	a2 := models.Document{Name: "a2", Text: "Client ID: 1\n" + TransactionMarker}
	anon := models.Document{Name: "anon", Text: TransactionMarker}

	parts, unassigned := PartitionByClient([]models.Document{a1, b1, anon, a2})
	require.Len(t, parts, 2)
	assert.Equal(t, "1", parts[0].ClientID)
	assert.Equal(t, []models.Document{a1, a2}, parts[0].Documents)
	assert.Equal(t, "2", parts[1].ClientID)
	assert.Equal(t, []models.Document{anon}, unassigned)

	parts, unassigned = PartitionByClient([]models.Document{anon, a1})
	require.Len(t, parts, 1)
	assert.Equal(t, []models.Document{anon, a1}, parts[0].Documents)
	assert.Empty(t, unassigned)
}
